package util

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipDirectorySkipsSpecialFiles(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Default"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Default", "Cookies"), []byte("c"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Local State"), []byte("{}"), 0o600))
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("host-1234", filepath.Join(src, "SingletonLock")))
	}

	dest := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, ZipDirectory(src, dest))

	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Default/", "Default/Cookies", "Local State"}, names)
}
