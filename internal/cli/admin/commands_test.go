package admin

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/cli"
)

func envNames(schema cli.CommandSchema) []string {
	names := make([]string, len(schema.Env))
	for i, e := range schema.Env {
		names[i] = e.Name
	}
	return names
}

func TestServeCmdSchema(t *testing.T) {
	schema := cli.GenerateSchema(ServeCmd())

	assert.Contains(t, envNames(schema), "MPEDGE_DATABASE_URL")
	assert.Contains(t, envNames(schema), "MPEDGE_RETRIEVAL_NO_MATCH_POLICY")
	assert.Contains(t, schema.Env, cli.EnvSchema{Name: "MPEDGE_CORPUS_SOURCE", Default: "file"})

	var port cli.FlagSchema
	for _, f := range schema.Flags {
		if f.Name == "port" {
			port = f
		}
	}
	assert.Equal(t, "MPEDGE_PORT", port.Env)
}

func TestAskCmdSchemaAndOutputValidation(t *testing.T) {
	cmd := AskCmd()
	schema := cli.GenerateSchema(cmd)

	found := false
	for _, f := range schema.Flags {
		if f.Name == "output" {
			found = true
			assert.Equal(t, []string{"text", "json"}, f.Enum)
		}
	}
	assert.True(t, found)

	cmd.SetArgs([]string{"What is a restriction requirement?", "--output", "yaml"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --output "yaml"`)
}

func TestIngestCmdSchemaMarksIndexRequired(t *testing.T) {
	schema := cli.GenerateSchema(IngestCmd())
	for _, f := range schema.Flags {
		if f.Name == "index" {
			assert.True(t, f.Required)
			return
		}
	}
	t.Fatal("index flag missing")
}
