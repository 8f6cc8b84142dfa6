package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/beyondbrewing/brewery-odm/config"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSchema = `
name:
  type: string
  required: true
age:
  type: number
  default: 18
`

type cli struct {
	t      *testing.T
	global []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(schemaFile, []byte(usersSchema), 0o644))
	return &cli{t: t, global: []string{
		"--backend", "file",
		"--path", filepath.Join(dir, "data"),
		"--log-level", "error",
		"--collection", "users",
		"--schema", schemaFile,
	}}
}

func (c *cli) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(append([]string{}, c.global...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) json(args ...string) any {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, args)
	var v any
	require.NoError(c.t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func ids(v any) []string {
	var out []string
	for _, r := range v.([]any) {
		out = append(out, r.(map[string]any)["id"].(string))
	}
	return out
}

func TestCLILifecycle(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, map[string]any{"id": "u1", "name": "Ana", "age": float64(18)},
		c.json("create", "--id", "u1", `{"name":"Ana"}`))
	c.json("create", "--id", "u2", `{"name":"Bob","age":30}`)
	c.json("create", "--id", "u3", `{"name":"Cid","age":45}`)

	assert.Equal(t, map[string]any{"id": "u1", "name": "Ana", "age": float64(18)}, c.json("get", "u1"))
	assert.Nil(t, c.json("get", "missing"))

	assert.Equal(t, []string{"u2", "u3"}, ids(c.json("find", "--where", "age>=20")))
	assert.Equal(t, []string{"u3", "u2", "u1"}, ids(c.json("find", "--order", "name:desc")))
	assert.Equal(t, []string{"u2"}, ids(c.json("find", "--order", "age", "--start-after", "18", "--limit", "1")))
	assert.Equal(t, []string{"u3"}, ids(c.json("find", "--order", "age", "--limit-to-last", "1")))

	assert.Equal(t, map[string]any{"id": "u1"}, c.json("update", "u1", `{"age":40}`))
	assert.Equal(t, float64(40), c.json("get", "u1").(map[string]any)["age"])

	assert.Equal(t, map[string]any{"id": "u2"}, c.json("delete", "u2"))
	assert.Nil(t, c.json("get", "u2"))
}

func TestCLIRaw(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, map[string]any{"path": "users/u1"},
		c.json("create", "--raw", "--id", "u1", `{"name":"Ana"}`))
	assert.Equal(t, map[string]any{
		"path":   "users/u1",
		"exists": true,
		"data":   map[string]any{"name": "Ana", "age": float64(18)},
	}, c.json("get", "--raw", "u1"))

	snap := c.json("get", "--raw", "nope").(map[string]any)
	assert.Equal(t, false, snap["exists"])
}

func TestCLIValidation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("create", `{"age":20}`)
	assert.Error(t, err)

	// Skipping validation stores the document as given.
	c.json("create", "--skip-validation", "--id", "x", `{"age":"old"}`)
	assert.Equal(t, map[string]any{"id": "x", "age": "old"}, c.json("get", "x"))

	_, err = c.run("update", "x", `{"age":"older"}`)
	assert.Error(t, err)

	assert.Equal(t, map[string]any{"age": float64(3)}, c.json("validate", `{"age":3}`))
}

func TestCLIErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("find", "--where", "age")
	assert.Error(t, err)
	_, err = c.run("find", "--order", "age:up")
	assert.Error(t, err)
	_, err = c.run("create", "not json")
	assert.Error(t, err)
	_, err = c.run("get")
	assert.Error(t, err)

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--backend", "memory", "get", "u1"})
	assert.ErrorContains(t, cmd.Execute(), "--collection")
}

func TestCLIVersion(t *testing.T) {
	out, err := newCLI(t).run("--version")
	require.NoError(t, err)
	assert.Equal(t, config.APP_NAME+" "+config.APP_VERSION+"\n", out)
}
