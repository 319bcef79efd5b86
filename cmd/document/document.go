// Package document contains the commands that write, read and delete documents in the
// configured datastore.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd/util"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/cascade"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/commands"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/telemetry"
)

const (
	schemaFlag          = "schema"
	datastoreEngineFlag = "datastore-engine"
	datastoreURIFlag    = "datastore-uri"
	resourceFlag        = "resource"
	documentFlag        = "document"
	idFlag              = "id"

	schemaPathKey      = "schema.path"
	datastoreEngineKey = "datastore.engine"
	datastoreURIKey    = "datastore.uri"
)

// NewDocumentCommand groups the upsert, update, get and delete commands.
func NewDocumentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Write, read and delete documents in the datastore",
		Long: `Write, read and delete documents in the configured datastore. SQL datastores must be
migrated first, see 'meadowlark migrate'.`,
	}

	flags := cmd.PersistentFlags()
	flags.String(schemaFlag, "", "path of the schema document (JSON or YAML)")
	flags.String(datastoreEngineFlag, "", "the datastore engine ('memory', 'sqlite' or 'postgres')")
	flags.String(datastoreURIFlag, "", "the connection uri of the datastore")
	flags.String(resourceFlag, "", "(required) the resource path, e.g. 'ed-fi/schools'")

	cmd.PersistentPreRun = func(command *cobra.Command, _ []string) {
		flags := command.Flags()
		util.MustBindPFlag(schemaPathKey, flags.Lookup(schemaFlag))
		util.MustBindPFlag(datastoreEngineKey, flags.Lookup(datastoreEngineFlag))
		util.MustBindPFlag(datastoreURIKey, flags.Lookup(datastoreURIFlag))
	}

	cmd.AddCommand(
		newUpsertCommand(),
		newUpdateCommand(),
		newGetCommand(),
		newDeleteCommand(),
	)

	return cmd
}

// session holds what a document command needs for one invocation.
type session struct {
	schema    *schema.ApiSchema
	datastore storage.Datastore
	opts      []commands.CommandOption
	resource  commands.ResourceRequest

	tracerProvider *sdktrace.TracerProvider
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, l, err := util.ReadVerifiedConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Schema.Path == "" {
		return nil, fmt.Errorf("missing '--%s'", schemaFlag)
	}

	resourcePath, _ := cmd.Flags().GetString(resourceFlag)
	projectEndpoint, endpoint, ok := strings.Cut(strings.Trim(resourcePath, "/"), "/")
	if !ok {
		return nil, fmt.Errorf("invalid resource '%s': expected 'project/resource'", resourcePath)
	}

	s, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	ds, err := util.NewDatastore(cfg.Datastore, l)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider
	if cfg.Trace.Enabled {
		tp = telemetry.MustNewTracerProvider(
			telemetry.WithOTLPEndpoint(cfg.Trace.OTLP.Endpoint),
			telemetry.WithServiceName(cfg.Trace.ServiceName),
			telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
		)
	}

	walker := cascade.NewWalker(cascade.WithLogger(l), cascade.WithMaxDepth(cfg.Commands.CascadeMaxDepth))
	return &session{
		schema:    s,
		datastore: ds,
		opts: []commands.CommandOption{
			commands.WithLogger(l),
			commands.WithMaxRetryElapsedTime(cfg.Commands.MaxRetryElapsedTime),
			commands.WithCascadeWalker(walker),
			commands.WithTypeCoercion(cfg.Commands.CoerceTypes),
		},
		resource:       commands.ResourceRequest{ProjectEndpoint: projectEndpoint, Endpoint: endpoint},
		tracerProvider: tp,
	}, nil
}

func (s *session) Close() {
	s.datastore.Close()
	if s.tracerProvider != nil {
		// flushes pending spans
		_ = s.tracerProvider.Shutdown(context.Background())
	}
}

// Record is the printed form of a stored document.
type Record struct {
	ID                      string          `json:"id"`
	ProjectName             string          `json:"projectName"`
	ResourceName            string          `json:"resourceName"`
	ResourceVersion         string          `json:"resourceVersion"`
	IsDescriptor            bool            `json:"isDescriptor"`
	ReferentialID           string          `json:"referentialId"`
	SuperclassReferentialID string          `json:"superclassReferentialId,omitempty"`
	References              []string        `json:"references"`
	Document                *document.Value `json:"document"`
	CreatedAt               time.Time       `json:"createdAt"`
	LastModifiedAt          time.Time       `json:"lastModifiedAt"`
}

func recordOf(r *storage.DocumentRecord) *Record {
	out := &Record{
		ID:              r.DocumentUUID,
		ProjectName:     r.ProjectName,
		ResourceName:    r.ResourceName,
		ResourceVersion: r.ResourceVersion,
		IsDescriptor:    r.IsDescriptor,
		ReferentialID:   r.ReferentialID.String(),
		References:      make([]string, 0, len(r.References)),
		Document:        r.Document,
		CreatedAt:       r.CreatedAt,
		LastModifiedAt:  r.LastModifiedAt,
	}
	if !r.SuperclassReferentialID.IsZero() {
		out.SuperclassReferentialID = r.SuperclassReferentialID.String()
	}
	for _, id := range r.References {
		out.References = append(out.References, id.String())
	}
	return out
}

func writeJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func readDocument(cmd *cobra.Command) (*document.Value, error) {
	path, _ := cmd.Flags().GetString(documentFlag)

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return document.Parse(data)
}

func requireID(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString(idFlag)
	if id == "" {
		return "", fmt.Errorf("missing '--%s'", idFlag)
	}
	return id, nil
}
