package workdir

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsPrivate(t *testing.T) {
	d, err := New(t.TempDir(), "srcinstall-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	info, err := os.Stat(d.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	assert.NoError(t, CheckPrivate(d.Path()))
}

func TestCloseRemovesDirectory(t *testing.T) {
	d, err := New(t.TempDir(), "srcinstall-*")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(d.Join("configure.log"), []byte("ok\n"), 0o600))

	require.NoError(t, d.Close())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))

	// Second close is a no-op.
	assert.NoError(t, d.Close())
}

func TestPreserveKeepsDirectory(t *testing.T) {
	d, err := New(t.TempDir(), "srcinstall-*")
	require.NoError(t, err)

	d.Preserve()
	assert.True(t, d.Preserved())
	require.NoError(t, d.Close())

	_, err = os.Stat(d.Path())
	assert.NoError(t, err)
}

func TestCheckPrivateRejectsGroupReadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.Chmod(dir, 0o750))

	err := CheckPrivate(dir)
	require.ErrorIs(t, err, ErrUnsafeDirectory)
	assert.Contains(t, err.Error(), "0750")
}

func TestCheckPrivateRejectsMissingAndFiles(t *testing.T) {
	root := t.TempDir()
	assert.ErrorIs(t, CheckPrivate(filepath.Join(root, "missing")), ErrUnsafeDirectory)

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.ErrorIs(t, CheckPrivate(file), ErrUnsafeDirectory)
}

func TestValidatePathWithinRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := ValidatePath(root, "subdir/file.txt")
	require.NoError(t, err)

	realRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, filepath.Join(realRoot, "subdir/file.txt"), resolved)
}

func TestValidatePathRejectsDotDot(t *testing.T) {
	root := t.TempDir()

	for _, p := range []string{"../escape.txt", "subdir/../../escape.txt"} {
		_, err := ValidatePath(root, p)
		require.Error(t, err, p)
		assert.ErrorIs(t, err, ErrOutsideRoot)
	}
}

func TestValidatePathRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(root, "escape-link")))

	_, err := ValidatePath(root, "escape-link/file.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestValidatePathAllowsInternalSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	resolved, err := ValidatePath(root, "link/file.txt")
	require.NoError(t, err)

	realRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, filepath.Join(realRoot, "real", "file.txt"), resolved)
}
