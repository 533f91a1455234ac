package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/recrawler/pkg/fileutil"
)

func TestEnsureDir_CreatesMissingDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, fileutil.EnsureDir(dir))
	assert.DirExists(t, dir)
}

func TestEnsureDir_ExistingDirectoryIsFine(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, fileutil.EnsureDir(dir))
	require.NoError(t, fileutil.EnsureDir(dir))
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := fileutil.EnsureDir(path)
	require.Error(t, err)

	var ferr *fileutil.FileError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fileutil.ErrCausePathError, ferr.Cause)
}

func TestRemoveIfExists_DeletesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "victim")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, fileutil.RemoveIfExists(path))
	assert.NoFileExists(t, path)
}

func TestRemoveIfExists_MissingPathIsFine(t *testing.T) {
	require.NoError(t, fileutil.RemoveIfExists(filepath.Join(t.TempDir(), "ghost")))
}
