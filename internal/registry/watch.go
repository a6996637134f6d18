package registry

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/tordrt/schemaguard/internal/model"
)

type watcher struct {
	fs     *fsnotify.Watcher
	stopCh chan struct{}
	done   chan struct{}
}

// WatchDir invalidates the registry whenever a schema file in dir is
// written, created, removed or renamed. Call Close to stop watching.
func (r *Registry) WatchDir(dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	w := &watcher{fs: fw, stopCh: make(chan struct{}), done: make(chan struct{})}

	r.mu.Lock()
	if r.watch != nil {
		r.mu.Unlock()
		fw.Close()
		return fmt.Errorf("registry is already watching a directory")
	}
	r.watch = w
	r.mu.Unlock()

	go r.watchLoop(w)

	r.logger.Info().Str("dir", dir).Msg("watching model directory for changes")
	return nil
}

// Close stops a running WatchDir.
func (r *Registry) Close() error {
	r.mu.Lock()
	w := r.watch
	r.watch = nil
	r.mu.Unlock()

	if w == nil {
		return nil
	}
	close(w.stopCh)
	err := w.fs.Close()
	<-w.done
	return err
}

func (r *Registry) watchLoop(w *watcher) {
	defer close(w.done)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !model.IsSchemaFile(event.Name) || event.Op&relevant == 0 {
				continue
			}
			r.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("model file changed")
			r.Invalidate()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("model watcher error")

		case <-w.stopCh:
			return
		}
	}
}
