package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDataDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDataDir("session")
	require.NoError(t, err)

	want := filepath.Join(tmp, "session")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDataDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureDataDir("session")
	require.NoError(t, err)

	second, err := EnsureDataDir("session")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureDataDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("session", []byte("x"), 0o660))

	_, err := EnsureDataDir("session")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestDataFile_JoinsInsideDataDir(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := DataFile("session", "client.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "session", "client.db"), got)
}

func TestEnsureDataDir_AbsolutePathUsedAsIs(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "data")

	got, err := EnsureDataDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.DirExists(t, want)
}
