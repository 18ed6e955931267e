package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Document is a JSON file mirrored in memory as T. Keys of the file that T does not
// know about survive every Update.
type Document[T any] struct {
	path string

	mu    sync.RWMutex
	value T
	raw   map[string]json.RawMessage
}

// OpenDocument loads path. When the file does not exist it is created from fallback.
func OpenDocument[T any](path string, fallback T) (*Document[T], error) {
	doc := &Document[T]{path: path, raw: map[string]json.RawMessage{}}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		doc.value = fallback
		if err := doc.persist(); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(content, &doc.raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := json.Unmarshal(content, &doc.value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return doc, nil
}

func (d *Document[T]) Path() string {
	return d.path
}

func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

// Update applies mutate to a copy of the mirror and writes the file. The mirror only
// changes when the write succeeds; an error from mutate skips the write.
func (d *Document[T]) Update(mutate func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := clone(d.value)
	if err != nil {
		return err
	}
	if err := mutate(&next); err != nil {
		return err
	}

	previous := d.value
	d.value = next
	if err := d.persist(); err != nil {
		d.value = previous
		return err
	}
	return nil
}

func (d *Document[T]) persist() error {
	typed, err := json.Marshal(d.value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	merged := make(map[string]json.RawMessage, len(d.raw)+len(fields))
	for k, v := range d.raw {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	content, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", d.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(content, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}

	d.raw = merged
	return nil
}

func clone[T any](value T) (T, error) {
	var out T
	content, err := json.Marshal(value)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(content, &out)
	return out, err
}
