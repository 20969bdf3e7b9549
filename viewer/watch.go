package viewer

import (
	"github.com/fsnotify/fsnotify"

	"github.com/wudi/docview/observability"
)

// Watcher notifies when a locally opened file changes on disk, so the
// embedding application can reopen it. Editors often replace files with
// rename+create, so creates count as changes too.
type Watcher struct {
	fs   *fsnotify.Watcher
	log  observability.Logger
	done chan struct{}
}

// WatchFile starts watching path and invokes onChange (on the watcher
// goroutine) for every write or create event affecting it.
func WatchFile(path string, log observability.Logger, onChange func()) (*Watcher, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{fs: fw, log: log, done: make(chan struct{})}
	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					log.Debug("watched file changed", observability.String("path", ev.Name))
					onChange()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn("file watch error", observability.Error("err", err))
			case <-w.done:
				return
			}
		}
	}()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
