package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHash_IgnoresLineEndings(t *testing.T) {
	unix := CalculateHash([]byte("Source,Source Field\nBE.csv,Vendor ID\n"))
	windows := CalculateHash([]byte("Source,Source Field\r\nBE.csv,Vendor ID\r\n\r\n"))

	assert.Equal(t, unix, windows)
	assert.NotEqual(t, unix, CalculateHash([]byte("Source,Source Field\nBE.csv,Name\n")))
}

func TestVerify(t *testing.T) {
	content := []byte("a,b\n1,2\n")
	meta := Sign(content, false, "draft")

	require.NoError(t, Verify(content, meta))
	require.ErrorIs(t, Verify([]byte("a,b\n1,3\n"), meta), ErrHashMismatch)
	require.ErrorIs(t, Verify(content, nil), ErrNoSignature)
	require.ErrorIs(t, Verify(content, &Metadata{}), ErrNoHashFound)
}

func TestSignFile_VerifyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping_table.csv")
	require.NoError(t, os.WriteFile(path, []byte("Source\nBE.csv\n"), 0644))

	_, err := VerifyFile(path)
	require.ErrorIs(t, err, ErrNoSignature)

	_, err = SignFile(path, false, "draft", "")
	require.NoError(t, err)

	meta, err := VerifyFile(path)
	require.ErrorIs(t, err, ErrNotValidated)
	assert.Equal(t, "draft", meta.Version)

	_, err = SignFile(path, true, "reviewed", "a.reviewer")
	require.NoError(t, err)

	meta, err = VerifyFile(path)
	require.NoError(t, err)
	assert.True(t, meta.Validation)
	assert.Equal(t, "a.reviewer", meta.Reviewer)

	require.NoError(t, os.WriteFile(path, []byte("Source\nCH.csv\n"), 0644))

	_, err = VerifyFile(path)
	require.ErrorIs(t, err, ErrHashMismatch)
}
