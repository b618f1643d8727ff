package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

const reloadDebounce = 250 * time.Millisecond

// ReloadTables re-reads the selector and rule override files and swaps both
// in. On any error the current tables stay active.
func (e *Env) ReloadTables() error {
	table, err := selectors.Load(e.cfg.Selectors().File)
	if err != nil {
		return err
	}
	det, err := loadDetector(e.cfg, e.root)
	if err != nil {
		return err
	}
	e.SwapTables(table, det)
	e.logger.Info("Selector and rule tables reloaded.",
		zap.String("selectors", e.cfg.Selectors().File),
		zap.String("rules", e.cfg.Detector().RulesFile))
	return nil
}

// overrideFiles lists the configured table files.
func (e *Env) overrideFiles() []string {
	var out []string
	for _, p := range []string{e.cfg.Selectors().File, e.cfg.Detector().RulesFile} {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}

// WatchTables reloads the tables whenever an override file changes, until
// ctx is done. Parent directories are watched so editors that replace the
// file on save are handled. It returns immediately when no override file is
// configured.
func (e *Env) WatchTables(ctx context.Context) error {
	files := e.overrideFiles()
	if len(files) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tools: creating file watcher: %w", err)
	}
	wanted := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range files {
		wanted[f] = true
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return fmt.Errorf("tools: watching %s: %w", d, err)
		}
	}
	e.logger.Info("Watching table overrides.", zap.Strings("files", files))

	go func() {
		defer w.Close()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !wanted[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				e.logger.Debug("Table file changed.", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				debounce = time.After(reloadDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				e.logger.Warn("File watcher error.", zap.Error(err))
			case <-debounce:
				debounce = nil
				if err := e.ReloadTables(); err != nil {
					e.logger.Error("Table reload failed; keeping current tables.", zap.Error(err))
				}
			}
		}
	}()
	return nil
}
