package core

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadSource(t *testing.T) {
	path := writeTemp(t, "leads.csv", []byte("email\na@x.com\n"))

	src, err := ReadSource(path, 0)
	require.NoError(t, err)

	assert.Equal(t, path, src.Path)
	assert.Equal(t, int64(14), src.BytesRead)

	data, err := io.ReadAll(src.Reader())
	require.NoError(t, err)
	assert.Equal(t, "email\na@x.com\n", string(data))
}

func TestReadSource_StripsBOM(t *testing.T) {
	path := writeTemp(t, "bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, "email\n"...))

	src, err := ReadSource(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "email\n", string(src.Data))
	assert.Equal(t, int64(9), src.BytesRead, "BytesRead counts the raw file")
}

func TestReadSource_InvalidUTF8(t *testing.T) {
	path := writeTemp(t, "bad.csv", []byte("name\nJos\xe9\n"))

	src, err := ReadSource(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "name\nJos\uFFFD\n", string(src.Data))
}

func TestReadSource_Missing(t *testing.T) {
	_, err := ReadSource(filepath.Join(t.TempDir(), "nope.csv"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadSource_TooLarge(t *testing.T) {
	path := writeTemp(t, "big.csv", []byte(strings.Repeat("x", 100)))

	_, err := ReadSource(path, 10)
	assert.True(t, errors.Is(err, ErrSourceTooLarge))

	_, err = ReadSource(path, 100)
	assert.NoError(t, err)
}

func TestReadSource_GrowsPastLimit(t *testing.T) {
	_, err := readSource("stream", strings.NewReader(strings.Repeat("x", 11)), 10)
	assert.True(t, errors.Is(err, ErrSourceTooLarge))
}
