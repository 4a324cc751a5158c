// Package hotplug watches /dev/input for keyboard device nodes
// appearing and disappearing, debouncing bursts of kernel create
// events the way a USB keyboard's multiple interfaces (boot + HID)
// tend to arrive together (spec §4.10 "hotplug debounce: 1 second").
package hotplug

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// debounceWindow matches spec §4.10's 1-second hotplug debounce.
const debounceWindow = time.Second

// Event is a coalesced notification that /dev/input changed; the
// orchestrator reacts by rescanning and diffing against its known
// keyboards rather than trusting individual paths named here.
type Event struct{}

// Watch emits a debounced Event on out every time /dev/input settles
// after a burst of create/remove activity. It runs until ctx is
// canceled.
func Watch(ctx context.Context, out chan<- Event) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add("/dev/input"); err != nil {
		return err
	}

	logger := log.With("component", "hotplug")
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
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("device node change", "path", ev.Name, "op", ev.Op)
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "err", err)

		case <-timerC:
			timerC = nil
			select {
			case out <- Event{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
