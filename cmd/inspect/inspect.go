// Package inspect contains the command that shows what the datastore would derive from a
// document without writing it.
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd/util"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/documentinfo"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

const (
	schemaFlag      = "schema"
	resourceFlag    = "resource"
	documentFlag    = "document"
	coerceTypesFlag = "coerce-types"

	schemaPathKey  = "schema.path"
	coerceTypesKey = "commands.coerceTypes"
)

type reference struct {
	Name          string                    `json:"name"`
	Path          string                    `json:"path"`
	Resource      identity.ResourceInfo     `json:"resource"`
	Identity      identity.DocumentIdentity `json:"identity"`
	ReferentialID identity.ReferentialID    `json:"referentialId"`
}

type superclass struct {
	Resource      identity.ResourceInfo     `json:"resource"`
	Identity      identity.DocumentIdentity `json:"identity"`
	ReferentialID identity.ReferentialID    `json:"referentialId"`
}

// Output is what the command prints for a valid document.
type Output struct {
	Resource             identity.ResourceInfo     `json:"resource"`
	Identity             identity.DocumentIdentity `json:"identity"`
	ReferentialID        identity.ReferentialID    `json:"referentialId"`
	Superclass           *superclass               `json:"superclass,omitempty"`
	References           []reference               `json:"references"`
	DescriptorReferences []reference               `json:"descriptorReferences"`
	Document             *document.Value           `json:"document"`
}

func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the identity and references derived from a document",
		Long: `Print the identity, the referential ids and the references the datastore derives from
a document of the given resource. Nothing is written.`,
		Example: `meadowlark inspect --schema ApiSchema.json --resource ed-fi/schools --document school.json`,
		RunE:    runInspect,
		Args:    cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String(schemaFlag, "", "(required) path of the schema document (JSON or YAML)")
	flags.String(resourceFlag, "", "(required) the resource path of the document, e.g. 'ed-fi/schools'")
	flags.String(documentFlag, "-", "path of the JSON document, '-' reads standard input")
	flags.Bool(coerceTypesFlag, false, "convert string values at boolean and numeric paths first")

	cmd.PreRun = func(command *cobra.Command, _ []string) {
		util.MustBindPFlag(schemaPathKey, command.Flags().Lookup(schemaFlag))
		util.MustBindPFlag(coerceTypesKey, command.Flags().Lookup(coerceTypesFlag))
	}

	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	path := viper.GetString(schemaPathKey)
	if path == "" {
		return fmt.Errorf("missing '--%s'", schemaFlag)
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return err
	}

	resourcePath, _ := cmd.Flags().GetString(resourceFlag)
	projectEndpoint, endpoint, ok := strings.Cut(strings.Trim(resourcePath, "/"), "/")
	if !ok {
		return fmt.Errorf("invalid resource '%s': expected 'project/resource'", resourcePath)
	}
	resource, err := s.ResourceSchemaByEndpoint(projectEndpoint, endpoint)
	if err != nil {
		return err
	}

	documentPath, _ := cmd.Flags().GetString(documentFlag)
	data, err := readDocument(cmd.InOrStdin(), documentPath)
	if err != nil {
		return err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	if viper.GetBool(coerceTypesKey) {
		doc = documentinfo.CoerceTypes(resource, doc)
	}

	info, err := documentinfo.Extract(cmd.Context(), resource, doc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(outputOf(info, doc), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func readDocument(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func outputOf(info *documentinfo.DocumentInfo, doc *document.Value) *Output {
	out := &Output{
		Resource:             info.Resource,
		Identity:             info.Identity,
		ReferentialID:        info.ReferentialID,
		References:           make([]reference, 0, len(info.References)),
		DescriptorReferences: make([]reference, 0, len(info.DescriptorReferences)),
		Document:             doc,
	}
	if info.Superclass != nil {
		out.Superclass = &superclass{
			Resource:      info.Superclass.Resource,
			Identity:      info.Superclass.Identity,
			ReferentialID: info.Superclass.ReferentialID,
		}
	}
	for _, r := range info.References {
		out.References = append(out.References, reference{
			Name:          r.Name,
			Path:          r.Path.String(),
			Resource:      r.Resource,
			Identity:      r.Identity,
			ReferentialID: r.ReferentialID,
		})
	}
	for _, r := range info.DescriptorReferences {
		out.DescriptorReferences = append(out.DescriptorReferences, reference{
			Name:          r.Name,
			Path:          r.Path.String(),
			Resource:      r.Resource,
			Identity:      r.Identity,
			ReferentialID: r.ReferentialID,
		})
	}
	return out
}
