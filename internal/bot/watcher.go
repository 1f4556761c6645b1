package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/pkg/util"
)

// Watcher triggers a reload when manifests in the commands directory change.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher starts watching dir. Bursts of changes within debounce are
// reported once.
func NewWatcher(dir string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()

		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{fs: fw, debounce: debounce, logger: logger.Named("watcher")}, nil
}

// Run calls reload after the directory settles. It returns when ctx is done
// or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, reload func(context.Context)) {
	d := util.NewDebouncer(w.debounce)
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("Commands directory changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			d.Reset()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		case <-d.C():
			w.logger.Info("Reloading commands after directory change")
			reload(ctx)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}

	return commands.IsManifest(filepath.Base(ev.Name))
}
