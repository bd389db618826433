// Package stock reads and writes the file-backed inventory of a product.
//
// A product's stock lives under a shared root directory, either as
// <root>/<product>.txt with one unit per non-empty line (line mode) or as
// <root>/<product>/ with one unit per file (file mode). Stores never cache
// counts: every call goes back to disk.
package stock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fulfillment-api/internal/model"
)

// ErrInvalidProductName is returned for product names that cannot be used as a path element.
var ErrInvalidProductName = errors.New("stock: invalid product name")

// Unit is one deliverable credential as loaded from the store.
type Unit struct {
	Content string
	Name    string // file name in file mode, empty in line mode
	Index   int    // position in the LoadAll result
}

// Store is the inventory of a single product.
type Store interface {
	// Mode reports the on-disk layout.
	Mode() model.InventoryMode

	// LoadAll returns every available unit in stable order. A missing file or
	// directory yields an empty result.
	LoadAll(ctx context.Context) ([]Unit, error)

	// Reject removes units that failed validation or deduplication right away.
	// remaining is the full set of units that must stay in a line-mode store.
	Reject(ctx context.Context, rejected, remaining []Unit) error

	// Consume removes delivered units. Line-mode stores drop them through
	// ReplaceRemaining instead, so Consume is a no-op there.
	Consume(ctx context.Context, delivered []Unit) error

	// ReplaceRemaining overwrites the store with exactly the given units.
	ReplaceRemaining(ctx context.Context, remaining []Unit) error

	// Add appends new units and returns how many were added.
	Add(ctx context.Context, units []Unit) (int, error)

	// Count recomputes the number of available units from disk.
	Count(ctx context.Context) (int, error)
}

// ValidateName checks that a product name is safe to use as a file or directory name.
func ValidateName(product string) error {
	name := strings.TrimSpace(product)
	if name == "" || name == "." || name == ".." || name != product {
		return fmt.Errorf("%w: %q", ErrInvalidProductName, product)
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidProductName, product)
	}
	return nil
}

// Open returns the store for product under root.
func Open(root, product string, mode model.InventoryMode) (Store, error) {
	if err := ValidateName(product); err != nil {
		return nil, err
	}
	switch mode {
	case model.ModeFile:
		return NewDirStore(filepath.Join(root, product)), nil
	case model.ModeLine:
		return NewLineStore(filepath.Join(root, product+".txt")), nil
	default:
		return nil, fmt.Errorf("stock: unknown inventory mode %q", mode)
	}
}

// Remove deletes a product's backing file or directory. Missing stock is not an error.
func Remove(root, product string, mode model.InventoryMode) error {
	if err := ValidateName(product); err != nil {
		return err
	}
	switch mode {
	case model.ModeFile:
		return os.RemoveAll(filepath.Join(root, product))
	case model.ModeLine:
		err := os.Remove(filepath.Join(root, product+".txt"))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("stock: unknown inventory mode %q", mode)
	}
}

// Contents returns the raw content of each unit.
func Contents(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Content
	}
	return out
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create stock dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
