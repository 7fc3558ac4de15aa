package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor produces on save.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads configuration when one of its files changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	load     func() (*Config, error)
	onChange func(*Config, error)

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	wg    sync.WaitGroup
}

// Watch calls onChange with a freshly loaded configuration whenever the user
// or project config file is written. Files that do not exist yet are picked
// up when created.
func Watch(onChange func(*Config, error)) (*Watcher, error) {
	paths := []string{GetUserConfigPath()}
	if p := GetProjectConfigPath(); p != "" {
		paths = append(paths, p)
	}
	return WatchFiles(paths, Load, onChange)
}

// WatchFiles watches paths and calls load on every change.
func WatchFiles(paths []string, load func() (*Config, error), onChange func(*Config, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool),
		load:     load,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	// Directories are watched so that rename-on-save editors keep working.
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	added := 0
	for dir := range dirs {
		if err := fw.Add(dir); err == nil {
			added++
		}
	}
	if added == 0 {
		fw.Close()
		return nil, fmt.Errorf("no config directory could be watched")
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDelay, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}
	cfg, err := w.load()
	w.onChange(cfg, err)
}

// Close stops watching.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
