package autobot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const maxReserveAttempts = 1000

// Namer hands out "<author>-<N>" file names. N starts at the number of
// entries already in the directory. Reservations in one directory are
// serialized and every name is claimed with O_EXCL, so concurrent writers
// never share a file.
type Namer struct {
	mu    sync.Mutex
	locks map[string]*dirLock
}

// dirLock is dropped from Namer.locks once nobody holds or waits on it.
type dirLock struct {
	mu   sync.Mutex
	refs int
}

func NewNamer() *Namer {
	return &Namer{locks: make(map[string]*dirLock)}
}

func (n *Namer) lock(dir string) func() {
	n.mu.Lock()
	l, ok := n.locks[dir]
	if !ok {
		l = &dirLock{}
		n.locks[dir] = l
	}
	l.refs++
	n.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		n.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(n.locks, dir)
		}
		n.mu.Unlock()
	}
}


// NextFileStem returns "<author>-<N>" where N is the entry count of dir.
// A missing directory counts as empty.
func (n *Namer) NextFileStem(dir, author string) (string, error) {
	unlock := n.lock(dir)
	defer unlock()

	count, err := countEntries(dir)
	if err != nil {
		return "", err
	}
	return fileStem(author, count), nil
}

// Reserve creates an empty file named "<author>-<N><ext>" in dir and returns
// it open for writing. dir is created if missing, including when it vanishes
// between reservations. The caller owns the file and must close it.
func (n *Namer) Reserve(dir, author, ext string) (*os.File, string, error) {
	unlock := n.lock(dir)
	defer unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", dir, err)
	}
	count, err := countEntries(dir)
	if err != nil {
		return nil, "", err
	}

	for i := 0; i < maxReserveAttempts; i++ {
		path := filepath.Join(dir, fileStem(author, count+i)+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		switch {
		case errors.Is(err, fs.ErrExist):
		case errors.Is(err, fs.ErrNotExist):
			// Pruned by a rotation pass; recreate and retry the same name.
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, "", fmt.Errorf("creating %s: %w", dir, err)
			}
			count--
		default:
			return nil, "", fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s in %s", author, dir)
}

func fileStem(author string, n int) string {
	return fmt.Sprintf("%s-%d", SafeLabel(author), n)
}

func countEntries(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}
	return len(entries), nil
}
