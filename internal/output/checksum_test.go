package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinases_mouse.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol\nAbl1\n"), 0o644))

	require.NoError(t, WriteChecksum(path))
	require.NoError(t, VerifyChecksum(path))

	raw, err := os.ReadFile(path + ChecksumSuffix)
	require.NoError(t, err)
	// "<hex>  <basename>" layout, usable by standard verification tools.
	assert.Contains(t, string(raw), "  kinases_mouse.csv\n")
	assert.Len(t, string(raw), 64+2+len("kinases_mouse.csv")+1)
}

func TestVerifyChecksumDetectsTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tf_human.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol\nMYC\n"), 0o644))
	require.NoError(t, WriteChecksum(path))

	require.NoError(t, os.WriteFile(path, []byte("symbol\nMYCN\n"), 0o644))
	err := VerifyChecksum(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestVerifyChecksumMissingSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))
	require.Error(t, VerifyChecksum(path))
}
