package feed

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch tails path and delivers appended transcript lines on the returned
// channel. Rapid write bursts are debounced before the file is re-read.
// The stop function tears the watcher down and closes the channel.
func Watch(path string) (<-chan []byte, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	// Watch the directory: editors and loggers replace files, and the
	// file may not exist yet.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	lines := make(chan []byte, 64)
	done := make(chan struct{})
	tailer := NewTailer(path)

	emit := func() {
		newLines, err := tailer.ReadNew()
		if err != nil {
			return
		}
		for _, line := range newLines {
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}

	go func() {
		defer watcher.Close()
		defer close(lines)

		// Deliver whatever the file already contains.
		emit()

		var debounce *time.Timer
		kicks := make(chan struct{}, 1)

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case kicks <- struct{}{}:
					default:
					}
				})

			case <-kicks:
				emit()

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Keep watching; a transient error drops one burst.

			case <-done:
				return
			}
		}
	}()

	stop := func() { close(done) }
	return lines, stop, nil
}
