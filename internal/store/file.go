package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wesm/flow/internal/model"
)

// DataFileName is the document name inside the data directory.
const DataFileName = "flow_data.json"

// watchDebounce is how long the data file must be quiet before an
// external edit is picked up.
const watchDebounce = 250 * time.Millisecond

// FileStore keeps the snapshot in a single JSON document. Writes
// go to a temporary file that is synced and renamed over the
// document, so readers never observe a partial write.
type FileStore struct {
	path     string
	mu       sync.Mutex
	cache    *model.Snapshot
	written  [sha256.Size]byte
	notifier *Notifier
	watcher  *Watcher
}

// FileOption configures a FileStore.
type FileOption func(*fileOptions)

type fileOptions struct {
	watch    bool
	debounce time.Duration
}

// WithWatch enables reloading the document when another process
// edits it.
func WithWatch(on bool) FileOption {
	return func(o *fileOptions) { o.watch = on }
}

// WithDebounce sets the quiet period used by the file watcher.
func WithDebounce(d time.Duration) FileOption {
	return func(o *fileOptions) { o.debounce = d }
}

// OpenFile opens the document at path, creating the directory and
// a fresh document when neither exists.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	o := fileOptions{debounce: watchDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	f := &FileStore{path: path, notifier: NewNotifier()}

	f.mu.Lock()
	_, err := f.loadLocked()
	if errors.Is(err, fs.ErrNotExist) {
		err = f.writeLocked(model.New())
	}
	f.mu.Unlock()
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return nil, err
	}
	if err != nil {
		// Serve the error on Load so the caller can report it
		// without losing the document.
		log.Printf("warning: %v", err)
	}

	if o.watch {
		w, err := NewWatcher(path, o.debounce, f.reload)
		if err != nil {
			log.Printf("warning: file watching disabled: %v", err)
		} else {
			f.watcher = w
			w.Start()
		}
	}
	return f, nil
}

// Path returns the document location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (f *FileStore) Update(
	ctx context.Context, fn func(*model.Snapshot) error,
) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	cur, err := f.loadLocked()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if err := f.writeLocked(next); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	out := next.Clone()
	f.mu.Unlock()

	f.notifier.Publish(SourceCommit)
	return out, nil
}

func (f *FileStore) Replace(ctx context.Context, s *model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	err := f.writeLocked(s.Clone())
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notifier.Publish(SourceCommit)
	return nil
}

func (f *FileStore) Subscribe() (<-chan Change, func()) {
	return f.notifier.Subscribe()
}

// Close stops the watcher and ends every subscription.
func (f *FileStore) Close() error {
	if f.watcher != nil {
		f.watcher.Stop()
	}
	f.notifier.Close()
	return nil
}

// loadLocked returns the cached snapshot, reading the document on
// a cache miss. Callers hold f.mu and must not mutate the result.
func (f *FileStore) loadLocked() (*model.Snapshot, error) {
	if f.cache != nil {
		return f.cache, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	s, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	f.cache = s
	f.written = sha256.Sum256(data)
	return s, nil
}

func (f *FileStore) writeLocked(s *model.Snapshot) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return err
	}
	f.cache = s
	f.written = sha256.Sum256(data)
	return nil
}

// reload is the watcher callback. Changes whose content matches
// our last write are ignored. The read happens under f.mu so a
// commit cannot land between reading and comparing.
func (f *FileStore) reload() {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.mu.Unlock()
		log.Printf("watcher: reading %s: %v", f.path, err)
		return
	}
	sum := sha256.Sum256(data)
	if sum == f.written {
		f.mu.Unlock()
		return
	}
	s, err := model.Decode(data)
	if err != nil {
		// Drop the cache so the next Load reports the damage.
		f.cache = nil
		f.mu.Unlock()
		log.Printf("watcher: %s is corrupt: %v", f.path, err)
		return
	}
	f.cache = s
	f.written = sum
	f.mu.Unlock()

	f.notifier.Publish(SourceExternal)
}

// writeFileAtomic writes data to a temp file in the target
// directory, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".flow-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	ok = true
	return nil
}
