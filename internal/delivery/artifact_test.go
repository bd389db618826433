package delivery

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

func TestWriter_LineMode(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "orders"))

	path, err := w.Write("ORDER-A", model.ModeLine, []stock.Unit{{Content: "a:b:c"}, {Content: "d:e:f"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "ORDER-A.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a:b:c\nd:e:f", string(data))
}

func TestWriter_FileModeBundle(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "orders"))
	units := []stock.Unit{
		{Name: "123_cookie.txt", Content: "one"},
		{Name: "123_cookie.txt", Content: "two"},
		{Content: "three"},
	}

	path, err := w.Write("ORDER-B", model.ModeFile, units)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "ORDER-B.zip"), path)

	entries, err := os.ReadDir(filepath.Join(w.Dir(), "ORDER-B"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		got[f.Name] = string(data)
	}
	assert.Equal(t, map[string]string{
		"123_cookie.txt":   "one",
		"123_cookie_1.txt": "two",
		"account_3.txt":    "three",
	}, got)
}

func TestWriter_NothingDelivered(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "orders"))

	path, err := w.Write("ORDER-C", model.ModeLine, nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = os.Stat(w.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_RejectsPathOrderID(t *testing.T) {
	w := NewWriter(t.TempDir())

	_, err := w.Write("../x", model.ModeLine, []stock.Unit{{Content: "a"}})
	assert.Error(t, err)
}
