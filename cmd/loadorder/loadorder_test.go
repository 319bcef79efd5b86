package loadorder

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd"
	"github.com/ed-fi-alliance-oss/meadowlark/cmd/util"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/loadorder"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/testfixtures/apischema"
)

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ApiSchema.json")
	require.NoError(t, os.WriteFile(path, []byte(apischema.EdFi), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	util.PrepareTempConfigDir(t)

	var out bytes.Buffer
	root := cmd.NewRootCommand()
	root.AddCommand(NewLoadOrderCommand())
	root.SetOut(&out)
	root.SetArgs(append([]string{"load-order"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoadOrderJSON(t *testing.T) {
	out, err := execute(t, "--schema", writeSchema(t))
	require.NoError(t, err)

	var orders []loadorder.LoadOrder
	require.NoError(t, json.Unmarshal([]byte(out), &orders))
	require.Len(t, orders, 9)
	require.Equal(t, loadorder.LoadOrder{
		Resource:   "/ed-fi/studentSectionAssociations",
		Order:      6,
		Operations: []loadorder.Operation{loadorder.Create, loadorder.Update},
	}, orders[len(orders)-1])
}

func TestLoadOrderTransforms(t *testing.T) {
	out, err := execute(t,
		"--schema", writeSchema(t),
		"--precedence", "Ed-Fi.CourseOffering<Ed-Fi.ClassPeriod",
		"--defer-update", "/ed-fi/schools>/ed-fi/studentSectionAssociations",
	)
	require.NoError(t, err)

	var orders []loadorder.LoadOrder
	require.NoError(t, json.Unmarshal([]byte(out), &orders))
	byResource := map[string]int{}
	for _, o := range orders {
		byResource[o.Resource] = max(byResource[o.Resource], o.Order)
	}
	require.Equal(t, 5, byResource["/ed-fi/classPeriods"])
	require.Equal(t, 7, byResource["/ed-fi/studentSectionAssociations"])
	require.Equal(t, 8, byResource["/ed-fi/schools"])
}

func TestLoadOrderYAML(t *testing.T) {
	out, err := execute(t, "--schema", writeSchema(t), "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "resource: /ed-fi/educationOrganizationCategoryDescriptors")
	require.Contains(t, out, "order: 6")
	require.Contains(t, out, "- Update")
	require.NotContains(t, out, "{")
}

func TestLoadOrderDOT(t *testing.T) {
	out, err := execute(t, "--schema", writeSchema(t), "--format", "dot")
	require.NoError(t, err)
	require.Contains(t, out, "digraph")
	require.Contains(t, out, "Ed-Fi.School")
}

func TestLoadOrderSchemaFromConfig(t *testing.T) {
	path := writeSchema(t)
	t.Setenv("MEADOWLARK_SCHEMA_PATH", path)

	out, err := execute(t)
	require.NoError(t, err)
	require.Contains(t, out, "/ed-fi/schools")
}

func TestLoadOrderErrors(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedError string
	}{
		{name: "missing_schema", expectedError: "missing '--schema'"},
		{name: "unknown_format", args: []string{"--format", "xml"}, expectedError: "unknown format 'xml'"},
		{name: "malformed_precedence", args: []string{"--precedence", "Ed-Fi.School"}, expectedError: "invalid precedence 'Ed-Fi.School'"},
		{name: "malformed_ref", args: []string{"--precedence", "School<Ed-Fi.Section"}, expectedError: "invalid resource 'School'"},
		{name: "malformed_defer_update", args: []string{"--defer-update", "/ed-fi/schools"}, expectedError: "invalid defer-update '/ed-fi/schools'"},
		{name: "unknown_resource", args: []string{"--precedence", "Ed-Fi.Student<Ed-Fi.School"}, expectedError: "unknown resource"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := test.args
			if test.name != "missing_schema" {
				args = append([]string{"--schema", writeSchema(t)}, args...)
			}
			_, err := execute(t, args...)
			require.ErrorContains(t, err, test.expectedError)
		})
	}
}
