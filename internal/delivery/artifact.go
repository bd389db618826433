// Package delivery writes the files handed to buyers for settled orders.
package delivery

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

// Writer stores delivery artifacts under a single orders directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the orders directory.
func (w *Writer) Dir() string { return w.dir }

// Write stores the units delivered to an order and returns the artifact path.
//
// Line-mode orders become <dir>/<order>.txt. File-mode orders keep every unit as
// <dir>/<order>/<file> and are bundled into <dir>/<order>.zip, which is returned.
func (w *Writer) Write(orderID string, mode model.InventoryMode, units []stock.Unit) (string, error) {
	if len(units) == 0 {
		return "", nil
	}
	if strings.ContainsAny(orderID, `/\`) || orderID == "" || orderID == "." || orderID == ".." {
		return "", fmt.Errorf("invalid order id %q", orderID)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create orders dir: %w", err)
	}

	if mode == model.ModeFile {
		return w.writeBundle(orderID, units)
	}

	path := filepath.Join(w.dir, orderID+".txt")
	if err := os.WriteFile(path, []byte(strings.Join(stock.Contents(units), "\n")), 0o644); err != nil {
		return "", fmt.Errorf("write order file: %w", err)
	}
	return path, nil
}

func (w *Writer) writeBundle(orderID string, units []stock.Unit) (string, error) {
	orderDir := filepath.Join(w.dir, orderID)
	if err := os.MkdirAll(orderDir, 0o755); err != nil {
		return "", fmt.Errorf("create order dir: %w", err)
	}

	names := fileNames(units)
	for i, u := range units {
		if err := os.WriteFile(filepath.Join(orderDir, names[i]), []byte(u.Content), 0o644); err != nil {
			return "", fmt.Errorf("write order unit: %w", err)
		}
	}

	zipPath := filepath.Join(w.dir, orderID+".zip")
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create order zip: %w", err)
	}
	zw := zip.NewWriter(f)
	for i, u := range units {
		entry, err := zw.Create(names[i])
		if err != nil {
			f.Close()
			return "", fmt.Errorf("add zip entry: %w", err)
		}
		if _, err := entry.Write([]byte(u.Content)); err != nil {
			f.Close()
			return "", fmt.Errorf("write zip entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("finish order zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close order zip: %w", err)
	}
	return zipPath, nil
}

// fileNames picks a unique base name per unit.
func fileNames(units []stock.Unit) []string {
	names := make([]string, len(units))
	used := make(map[string]int, len(units))
	for i, u := range units {
		name := filepath.Base(u.Name)
		if u.Name == "" || name == "." || name == string(filepath.Separator) {
			name = fmt.Sprintf("account_%d.txt", i+1)
		}
		if n := used[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		used[name]++
		names[i] = name
	}
	return names
}
