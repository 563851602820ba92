package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI against the given database and returns
// captured stdout.
func runCommand(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", db, "--session", "cli-test"}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

// decodeResponse unmarshals a JSON-format CLI response.
func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cli.db")
}

func TestSaveAndGet(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, db, "save", "build_status", "failing", "--category", "task")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE build_status (seq 1)")

	out, err = runCommand(t, db, "get", "build_status")
	require.NoError(t, err)
	assert.Equal(t, "failing\n", out)
}

func TestSave_SecondWriteIsUpdate(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, db, "save", "theme", "dark")
	require.NoError(t, err)

	out, err := runCommand(t, db, "save", "theme", "light")
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATE theme (seq 2)")
}

func TestSave_InvalidPriority(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, db, "save", "k", "v", "--priority", "urgent")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGet_Missing(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, db, "get", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "ITEM_NOT_FOUND")
}

func TestDelete(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, db, "save", "scratch", "x")
	require.NoError(t, err)

	out, err := runCommand(t, db, "delete", "scratch")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE scratch (seq 2)")

	// Deleting again finds nothing.
	_, err = runCommand(t, db, "delete", "scratch")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestList_JSON(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, db, "save", "a", "1")
	require.NoError(t, err)
	_, err = runCommand(t, db, "save", "b", "2", "--priority", "high")
	require.NoError(t, err)

	out, err := runCommand(t, db, "list", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total"])
}

func TestList_EmptyText(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, db, "list")
	require.NoError(t, err)
	assert.Equal(t, "No items.\n", out)
}

func TestLog(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, db, "save", "k", "v1")
	require.NoError(t, err)
	_, err = runCommand(t, db, "save", "k", "v2")
	require.NoError(t, err)
	_, err = runCommand(t, db, "delete", "k")
	require.NoError(t, err)

	out, err := runCommand(t, db, "log", "--format", "json")
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(3), data["total"])

	// --since uses the same exclusive cursor semantics as watchers.
	out, err = runCommand(t, db, "log", "--since", "2", "--format", "json")
	require.NoError(t, err)
	data = decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	changes := data["changes"].([]any)
	assert.Equal(t, "DELETE", changes[0].(map[string]any)["type"])
}
