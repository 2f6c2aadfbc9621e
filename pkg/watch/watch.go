// Package watch re-parses an xlights_networks.xml file whenever it changes
// and publishes the controllers to subscribers.
//
//	w := watch.New(logger)
//	defer w.Close()
//	if err := w.Watch(path); err != nil {
//	    return err
//	}
//	updates, cancel := w.Subscribe()
//	defer cancel()
//	for u := range updates {
//	    ...
//	}
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 150 * time.Millisecond

// Update is one parse of the watched file. Err is set when the file could
// not be parsed; Controllers then holds nothing.
type Update struct {
	Path        string               `json:"path"`
	Controllers []xlights.Controller `json:"controllers"`
	Err         error                `json:"-"`
}

// Watcher watches at most one networks file at a time.
type Watcher struct {
	Logger   *log.Logger
	Debounce time.Duration

	// swapMu serializes Watch and Close so only one loop ever runs.
	swapMu sync.Mutex

	mu     sync.Mutex
	fw     *fsnotify.Watcher
	stop   chan struct{}
	done   chan struct{}
	path   string
	last   []xlights.Controller
	subs   map[int]chan Update
	nextID int
}

// New returns an idle watcher. A nil logger uses log.Default().
func New(logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		Logger:   logger,
		Debounce: DefaultDebounce,
		subs:     make(map[int]chan Update),
		last:     []xlights.Controller{},
	}
}

// Watch starts watching path, replacing any previous watch. The file is
// parsed once immediately. It fails with FILE_NOT_FOUND when path does not
// exist.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	if _, err := os.Stat(abs); err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "file not found: %s", filepath.Base(path))
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "start file watcher")
	}
	// Watch the directory: editors and xLights replace the file on save,
	// which drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "watch %s", filepath.Dir(abs))
	}

	w.swapMu.Lock()
	defer w.swapMu.Unlock()
	w.stopCurrent()

	w.mu.Lock()
	w.fw = fw
	w.path = abs
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stop, w.done
	w.mu.Unlock()

	w.Logger.Info("watching xLights file", "path", abs)
	w.reload(abs)
	go w.loop(fw, abs, stop, done)
	return nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher, path string, stop, done chan struct{}) {
	defer close(done)

	var pending <-chan time.Time
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				pending = time.After(w.Debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.Logger.Error("file watcher error", "err", err)
			w.publish(Update{Path: path, Err: err})
		case <-pending:
			pending = nil
			w.reload(path)
		}
	}
}

func (w *Watcher) reload(path string) {
	controllers, err := xlights.ParseNetworksFile(path)
	if err != nil {
		w.Logger.Error("could not parse xLights file", "path", path, "err", err)
		w.publish(Update{Path: path, Controllers: []xlights.Controller{}, Err: err})
		return
	}
	w.Logger.Debug("xLights file changed", "path", path, "controllers", len(controllers))

	w.mu.Lock()
	w.last = controllers
	w.mu.Unlock()
	w.publish(Update{Path: path, Controllers: controllers})
}

// publish delivers u to every subscriber. A subscriber that has not read the
// previous update loses it; only the newest state matters.
func (w *Watcher) publish(u Update) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// Subscribe returns a channel of updates and a func that unsubscribes and
// closes the channel.
func (w *Watcher) Subscribe() (<-chan Update, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	ch := make(chan Update, 1)
	w.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(ch)
		})
	}
}

// Controllers returns the controllers of the last successful parse.
func (w *Watcher) Controllers() []xlights.Controller {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]xlights.Controller{}, w.last...)
}

// SetControllers replaces the last known controllers, for files parsed
// outside the watcher.
func (w *Watcher) SetControllers(cs []xlights.Controller) {
	w.mu.Lock()
	w.last = append([]xlights.Controller{}, cs...)
	w.mu.Unlock()
}

// Path returns the watched file, or "" when idle.
func (w *Watcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// stopCurrent ends the running loop. Callers hold swapMu.
func (w *Watcher) stopCurrent() {
	w.mu.Lock()
	fw, stop, done := w.fw, w.stop, w.done
	w.fw, w.stop, w.done, w.path = nil, nil, nil, ""
	w.mu.Unlock()

	if fw == nil {
		return
	}
	close(stop)
	<-done
	fw.Close()
}

// Close stops watching. Subscriptions stay open until cancelled.
func (w *Watcher) Close() error {
	w.swapMu.Lock()
	defer w.swapMu.Unlock()
	w.stopCurrent()
	return nil
}
