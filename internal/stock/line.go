package stock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"fulfillment-api/internal/model"
)

// LineStore keeps one unit per non-empty line of a text file.
type LineStore struct {
	path string
	mu   sync.Mutex
}

// NewLineStore creates a line-mode store backed by path.
func NewLineStore(path string) *LineStore {
	return &LineStore{path: path}
}

// Path returns the backing file.
func (s *LineStore) Path() string { return s.path }

func (s *LineStore) Mode() model.InventoryMode { return model.ModeLine }

func (s *LineStore) LoadAll(ctx context.Context) ([]Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *LineStore) load() ([]Unit, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stock file: %w", err)
	}

	lines := splitLines(string(data))
	units := make([]Unit, len(lines))
	for i, line := range lines {
		units[i] = Unit{Content: line, Index: i}
	}
	return units, nil
}

func (s *LineStore) Reject(ctx context.Context, rejected, remaining []Unit) error {
	if len(rejected) == 0 {
		return nil
	}
	return s.ReplaceRemaining(ctx, remaining)
}

func (s *LineStore) Consume(ctx context.Context, delivered []Unit) error {
	return nil
}

func (s *LineStore) ReplaceRemaining(ctx context.Context, remaining []Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, []byte(joinLines(Contents(remaining))))
}

func (s *LineStore) Add(ctx context.Context, units []Unit) (int, error) {
	var added []string
	for _, u := range units {
		added = append(added, splitLines(u.Content)...)
	}
	if len(added) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return 0, err
	}
	lines := append(Contents(existing), added...)
	if err := writeFileAtomic(s.path, []byte(joinLines(lines))); err != nil {
		return 0, err
	}
	return len(added), nil
}

func (s *LineStore) Count(ctx context.Context) (int, error) {
	units, err := s.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(units), nil
}

func splitLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

var _ Store = (*LineStore)(nil)
