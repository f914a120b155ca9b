// Package watcher notices when the serial device node (re)appears, using fsnotify.
//
// The watch sits on the deepest existing directory on the device's path.
// udev deletes /dev/serial/by-id when the last adapter is unplugged, so
// when a watched directory goes away the watch moves up to its parent, and
// moves back down as the directories are recreated.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/rfidbridge/internal/sync"
)

// DeviceWatcher watches the directory holding a device node and signals
// when the node is created. USB serial adapters get a fresh node on every
// re-plug, so this lets the reconnect loop skip the rest of its backoff.
type DeviceWatcher struct {
	device   string
	appeared chan struct{}

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched string
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDeviceWatcher creates a watcher for the given device path.
func NewDeviceWatcher(device string) *DeviceWatcher {
	return &DeviceWatcher{
		device:   filepath.Clean(device),
		appeared: make(chan struct{}, 1),
	}
}

// Start begins watching the device's parent directory, or its nearest
// existing ancestor.
func (w *DeviceWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.watched = ""
	if err := w.rewatchLocked(false); err != nil {
		_ = watcher.Close()
		w.watcher = nil
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.eventLoop(watchCtx, watcher, w.done)

	log.Debug().Str("device", w.device).Str("watching", w.watched).Msg("device watcher started")
	return nil
}

// Stop terminates watching.
func (w *DeviceWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	err := w.watcher.Close()
	done := w.done
	w.watcher = nil
	w.mu.Unlock()

	<-done
	log.Debug().Str("device", w.device).Msg("device watcher stopped")
	return err
}

// Appeared returns a channel that receives a value when the device node is
// created. Signals coalesce: at most one is pending at a time.
func (w *DeviceWatcher) Appeared() <-chan struct{} {
	return w.appeared
}

// Watching returns the directory currently watched.
func (w *DeviceWatcher) Watching() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched
}

// rewatchLocked adds a watch on the deepest existing directory above the
// device. With announce set, a device found already present is signalled,
// since its Create event may have fired before the watch existed.
func (w *DeviceWatcher) rewatchLocked(announce bool) error {
	// A deeper directory can appear between the walk and the Add, before
	// the new watch would report it, so repeat until the walk settles.
	for {
		dir, err := w.deepestDir()
		if err != nil {
			return err
		}
		if dir == w.watched {
			break
		}
		if err := w.watcher.Add(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if w.watched != "" {
			// The old directory may be gone already, which drops its watch.
			_ = w.watcher.Remove(w.watched)
		}
		log.Debug().Str("device", w.device).Str("watching", dir).Msg("device watch moved")
		w.watched = dir
	}

	if announce && w.watched == filepath.Dir(w.device) {
		if _, err := os.Stat(w.device); err == nil {
			w.signal()
		}
	}
	return nil
}

func (w *DeviceWatcher) deepestDir() (string, error) {
	dir := filepath.Dir(w.device)
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no existing directory above " + w.device)
		}
		dir = parent
	}
}

func (w *DeviceWatcher) rewatch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if err := w.rewatchLocked(true); err != nil {
		log.Warn().Err(err).Str("device", w.device).Msg("device watch lost, using interval retry")
	}
}

func (w *DeviceWatcher) signal() {
	select {
	case w.appeared <- struct{}{}:
	default:
	}
}

// onDevicePath reports whether p is the device's parent directory or one
// of its ancestors.
func (w *DeviceWatcher) onDevicePath(p string) bool {
	rel, err := filepath.Rel(p, filepath.Dir(w.device))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (w *DeviceWatcher) eventLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)

			switch {
			case name == w.device && event.Has(fsnotify.Create):
				log.Debug().Str("device", w.device).Msg("device node appeared")
				w.signal()

			case w.onDevicePath(name) && event.Has(fsnotify.Create):
				// A directory on the way to the device came back.
				w.rewatch()

			case w.onDevicePath(name) && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)):
				// The watched directory, or one above it, went away.
				w.rewatch()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("device", w.device).Msg("device watcher error")
		}
	}
}
