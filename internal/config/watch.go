package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce matches spec §4.10: "after any watched path fires a
// modify/create event, debounce 300 ms before emitting the reload
// signal".
const watchDebounce = 300 * time.Millisecond

// Watch emits on out every time path settles after a write, debounced
// by watchDebounce so an editor's write-then-rename produces one
// signal instead of several. It runs until ctx is canceled.
func Watch(ctx context.Context, path string, out chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C

		case <-watcher.Errors:
			continue

		case <-timerC:
			timerC = nil
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
