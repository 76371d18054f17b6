package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the set as a sorted JSON array of ids.
type FileStore struct {
	Path string
}

func NewFileStore(path string) FileStore {
	return FileStore{Path: path}
}

func (f FileStore) Load(ctx context.Context) Set {
	contents, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return NewSet()
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read identity store, starting empty", "path", f.Path, "err", err)
		return NewSet()
	}

	var ids []string
	err = json.Unmarshal(contents, &ids)
	if err != nil {
		slog.WarnContext(ctx, "corrupt identity store, starting empty", "path", f.Path, "err", err)
		return NewSet()
	}
	return NewSet(ids...)
}

func (f FileStore) Save(_ context.Context, set Set) error {
	contents, err := json.MarshalIndent(set.Sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity set: %w", err)
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create identity store directory: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, append(contents, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write identity store: %w", err)
	}
	return nil
}

func (FileStore) Close() error {
	return nil
}
