// Package loadorder contains the command that prints the order in which resources of a
// schema can be bulk loaded.
package loadorder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd/util"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/config"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/loadorder"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

const (
	schemaFlag      = "schema"
	formatFlag      = "format"
	precedenceFlag  = "precedence"
	deferUpdateFlag = "defer-update"

	schemaPathKey = "schema.path"
	cacheSizeKey  = "loadOrder.cacheSize"
)

func NewLoadOrderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load-order",
		Short: "Print the order in which the resources of a schema can be loaded",
		Long: `Print the waves in which the resources of a schema can be created and updated so that
every required reference is satisfied. Resources in the same wave can be loaded in parallel.`,
		Example: `meadowlark load-order --schema ApiSchema.json --precedence "Ed-Fi.CourseOffering<Ed-Fi.ClassPeriod"`,
		RunE:    runLoadOrder,
		Args:    cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String(schemaFlag, "", "(required) path of the schema document (JSON or YAML)")
	flags.String(formatFlag, "json", "output format: 'json', 'yaml' or 'dot' (the dependency graph)")
	flags.StringSlice(precedenceFlag, nil, "extra dependency 'Project.Before<Project.After': After loads only once Before has been loaded")
	flags.StringSlice(deferUpdateFlag, nil, "'/project/resource>/project/after': move the updates of resource behind every wave of after")

	cmd.PreRun = func(command *cobra.Command, _ []string) {
		util.MustBindPFlag(schemaPathKey, command.Flags().Lookup(schemaFlag))
	}

	return cmd
}

func runLoadOrder(cmd *cobra.Command, _ []string) error {
	path := viper.GetString(schemaPathKey)
	if path == "" {
		return fmt.Errorf("missing '--%s'", schemaFlag)
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	format, _ := flags.GetString(formatFlag)
	precedence, _ := flags.GetStringSlice(precedenceFlag)
	deferUpdate, _ := flags.GetStringSlice(deferUpdateFlag)

	graphTransforms := make([]loadorder.GraphTransformer, 0, len(precedence))
	for _, p := range precedence {
		t, err := parsePrecedence(p)
		if err != nil {
			return err
		}
		graphTransforms = append(graphTransforms, t)
	}

	orderTransforms := make([]loadorder.OrderTransformer, 0, len(deferUpdate))
	for _, d := range deferUpdate {
		resource, after, ok := strings.Cut(d, ">")
		if !ok || resource == "" || after == "" {
			return fmt.Errorf("invalid defer-update '%s': expected '/project/resource>/project/after'", d)
		}
		orderTransforms = append(orderTransforms, loadorder.NewDeferUpdateTransformer(resource, after))
	}

	out := cmd.OutOrStdout()
	switch format {
	case "dot":
		return writeDOT(out, s, graphTransforms)
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown format '%s'", format)
	}

	cacheSize := viper.GetInt64(cacheSizeKey)
	if cacheSize < 1 {
		cacheSize = config.DefaultLoadOrderCacheSize
	}
	cache, err := loadorder.NewCache(loadorder.WithMaxCacheSize(cacheSize))
	if err != nil {
		return err
	}
	defer cache.Close()

	orders, err := cache.LoadOrder(s, graphTransforms, orderTransforms)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return err
	}
	if format == "yaml" {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return err
		}
	} else {
		data = append(data, '\n')
	}
	_, err = out.Write(data)
	return err
}

func writeDOT(out io.Writer, s *schema.ApiSchema, transforms []loadorder.GraphTransformer) error {
	g, err := loadorder.Build(s)
	if err != nil {
		return err
	}
	for _, t := range transforms {
		if g, err = t.Transform(g); err != nil {
			return fmt.Errorf("graph transform %s: %w", t.Name(), err)
		}
	}
	dot, err := g.DOT()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, dot)
	return err
}

func parsePrecedence(s string) (loadorder.GraphTransformer, error) {
	before, after, ok := strings.Cut(s, "<")
	if !ok {
		return nil, fmt.Errorf("invalid precedence '%s': expected 'Project.Before<Project.After'", s)
	}
	beforeRef, err := parseRef(before)
	if err != nil {
		return nil, err
	}
	afterRef, err := parseRef(after)
	if err != nil {
		return nil, err
	}
	return loadorder.NewPrecedenceTransformer(beforeRef, afterRef), nil
}

func parseRef(s string) (loadorder.Ref, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return loadorder.Ref{}, fmt.Errorf("invalid resource '%s': expected 'Project.Resource'", s)
	}
	return loadorder.Ref{ProjectName: strings.TrimSpace(s[:i]), ResourceName: strings.TrimSpace(s[i+1:])}, nil
}
