package stock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fulfillment-api/internal/model"
)

// DirStore keeps one unit per regular file inside a directory.
type DirStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewDirStore creates a file-mode store backed by dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir, now: time.Now}
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) Mode() model.InventoryMode { return model.ModeFile }

func (s *DirStore) LoadAll(ctx context.Context) ([]Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.fileNames()
	if err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read stock unit %s: %w", name, err)
		}
		units = append(units, Unit{
			Content: strings.TrimSpace(string(data)),
			Name:    name,
			Index:   len(units),
		})
	}
	return units, nil
}

// fileNames lists unit files in directory order, skipping temp files and subdirectories.
func (s *DirStore) fileNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list stock dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *DirStore) Reject(ctx context.Context, rejected, remaining []Unit) error {
	return s.remove(rejected)
}

func (s *DirStore) Consume(ctx context.Context, delivered []Unit) error {
	return s.remove(delivered)
}

func (s *DirStore) remove(units []Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, u := range units {
		if u.Name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, u.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove stock unit %s: %w", u.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *DirStore) ReplaceRemaining(ctx context.Context, remaining []Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(remaining))
	for _, u := range remaining {
		if u.Name != "" {
			keep[u.Name] = struct{}{}
		}
	}

	names, err := s.fileNames()
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := keep[name]; ok {
			present[name] = struct{}{}
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stock unit %s: %w", name, err)
		}
	}

	var missing []Unit
	for _, u := range remaining {
		if _, ok := present[u.Name]; !ok || u.Name == "" {
			missing = append(missing, u)
		}
	}
	_, err = s.write(missing, false)
	return err
}

func (s *DirStore) Add(ctx context.Context, units []Unit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(units, true)
}

// write stores units as new files. Restocked files get a timestamp prefix so
// repeated uploads of the same file name never collide.
func (s *DirStore) write(units []Unit, stamp bool) (int, error) {
	if len(units) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create stock dir: %w", err)
	}

	base := s.now().UnixNano()
	written := 0
	for i, u := range units {
		name := filepath.Base(u.Name)
		if u.Name == "" || name == "." || name == string(filepath.Separator) {
			name = uuid.New().String() + ".txt"
		}
		if stamp {
			name = fmt.Sprintf("%d_%s", base+int64(i), name)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, name), []byte(u.Content)); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *DirStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.fileNames()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

var _ Store = (*DirStore)(nil)
