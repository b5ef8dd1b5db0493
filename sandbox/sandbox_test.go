package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExecutor_PrepareAndReadFile(t *testing.T) {
	root := t.TempDir()
	ex, err := NewLocalExecutor(root)
	require.NoError(t, err)

	require.NoError(t, ex.PrepareFiles(map[string][]byte{"a/b.txt": []byte("hello")}))
	assert.True(t, ex.FileExists("a/b.txt"))

	data, err := ex.ReadFile("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalExecutor_PathTraversalIsIsolationBreach(t *testing.T) {
	root := t.TempDir()
	ex, err := NewLocalExecutor(root)
	require.NoError(t, err)

	assert.False(t, ex.FileExists("../../etc/passwd"))

	_, err = ex.ReadFile("../outside.txt")
	require.Error(t, err)
	var sbErr *SandboxError
	require.ErrorAs(t, err, &sbErr)
	assert.True(t, sbErr.IsolationBreach)
}

func TestLocalExecutor_Execute(t *testing.T) {
	root := t.TempDir()
	ex, err := NewLocalExecutor(root)
	require.NoError(t, err)

	result, err := ex.Execute(context.Background(), "true")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	ok, err := ex.CommandSucceeds(context.Background(), "false", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewLocalExecutor_RequiresExistingDir(t *testing.T) {
	_, err := NewLocalExecutor("/path/does/not/exist")
	require.Error(t, err)
}
