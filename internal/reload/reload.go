// Package reload watches the configuration file and re-applies it to the
// running core without a restart.
package reload

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stewardhq/steward/internal/config"
)

// Applier receives each successfully loaded configuration.
type Applier interface {
	ApplyConfig(cfg config.Config) error
}

// Reloader watches one config file for changes.
type Reloader struct {
	watcher *fsnotify.Watcher
	applier Applier
	path    string
}

// New creates a file watcher for the given config path. The file must
// exist; a core running on pure defaults has nothing to watch.
func New(applier Applier, path string) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not watchable: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, applier: applier, path: path}, nil
}

// Run watches for file changes and reloads the config. Blocks until ctx
// is cancelled. Writes are debounced: editors emit bursts, and a
// half-written file must not be applied.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := config.Load(r.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
		return
	}
	if err := r.applier.ApplyConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload apply failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "hot-reload: config applied\n")
}
