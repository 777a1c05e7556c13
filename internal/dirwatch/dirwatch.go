// Package dirwatch rebuilds the asset map when files change inside a mounted
// host directory.
package dirwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/types"
)

// DefaultDebounce is how long the tree must stay quiet before a rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Target is the part of the manager a Watcher drives.
type Target interface {
	Mounted() (assetfs.MountInfo, bool)
	Subscribe() *assetfs.Subscription
	Rebuild(ctx context.Context) error
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// Watcher follows whichever host directory is mounted. It re-targets itself
// after every mount change and stops watching when something else is mounted.
type Watcher struct {
	target   Target
	debounce time.Duration
	log      *zap.Logger

	fsw     *fsnotify.Watcher
	watched map[string]struct{}

	mu   sync.Mutex
	root string
}

func New(target Target, opts ...Option) *Watcher {
	w := &Watcher{
		target:   target,
		debounce: DefaultDebounce,
		log:      zap.NewNop(),
		watched:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx ends. Only a failure to create the underlying
// notifier is returned; everything later is logged.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot setup watcher: %w", err)
	}
	w.fsw = fsw
	defer fsw.Close() // nolint:errcheck

	sub := w.target.Subscribe()
	defer sub.Close() // nolint:errcheck

	w.retarget()

	// Stopped until the first event; Stop leaves no stale tick on go1.23+.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			w.retarget()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("dirwatch: watcher error", zap.Error(err))

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.log.Debug("dirwatch: change settled, rebuilding", zap.String("root", w.Root()))
			if err := w.target.Rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("dirwatch: rebuild failed", zap.Error(err))
			}
		}
	}
}

// Root returns the host directory currently watched, or "".
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

// retarget points the watcher at the mounted host directory.
func (w *Watcher) retarget() {
	root := mountedRoot(w.target)
	if root == w.Root() {
		return
	}
	for dir := range w.watched {
		_ = w.fsw.Remove(dir)
	}
	w.watched = make(map[string]struct{})
	w.mu.Lock()
	w.root = root
	w.mu.Unlock()
	if root == "" {
		w.log.Debug("dirwatch: nothing to watch")
		return
	}
	w.addTree(root)
	w.log.Info("dirwatch: watching", zap.String("root", root), zap.Int("dirs", len(w.watched)))
}

// addTree registers dir and every directory below it.
func (w *Watcher) addTree(dir string) {
	var (
		mu   sync.Mutex
		dirs []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			mu.Lock()
			dirs = append(dirs, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		w.log.Warn("dirwatch: walking directory", zap.String("dir", dir), zap.Error(err))
	}
	for _, d := range dirs {
		if _, ok := w.watched[d]; ok {
			continue
		}
		if err := w.fsw.Add(d); err != nil {
			w.log.Warn("dirwatch: cannot add directory", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.watched[d] = struct{}{}
	}
}

// mountedRoot returns the host path of a mounted directory, or "".
func mountedRoot(t Target) string {
	info, ok := t.Mounted()
	if !ok || info.Kind != types.MountDirectory {
		return ""
	}
	dir, ok := info.Handle.(*handles.Directory)
	if !ok || !dir.OnHost() {
		return ""
	}
	if fi, err := os.Stat(dir.Path()); err != nil || !fi.IsDir() {
		return ""
	}
	return dir.Path()
}
