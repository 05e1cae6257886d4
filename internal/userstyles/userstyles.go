// Package userstyles keeps the page's user stylesheet in sync with a
// directory of .css files.
package userstyles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long the directory must stay quiet before the
// stylesheet is rebuilt. Editors write files in several steps.
const DefaultSettle = 150 * time.Millisecond

// Injector applies a stylesheet to the page, replacing the previous one.
type Injector interface {
	InjectCSS(css string) error
}

// Load concatenates the .css files in dir in name order. A missing
// directory yields an empty stylesheet.
func Load(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read userstyles dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isStylesheet(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		fmt.Fprintf(&b, "/* %s */\n", name)
		b.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func isStylesheet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".css") && !strings.HasPrefix(name, ".")
}

// Watcher re-injects the stylesheet whenever the directory changes.
type Watcher struct {
	dir    string
	inject Injector
	logger *slog.Logger
	settle time.Duration

	last string
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, inject Injector, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:    dir,
		inject: inject,
		logger: logger,
		settle: DefaultSettle,
	}
}

// Run injects the current stylesheet and then follows changes until ctx is
// done. The directory is created if it does not exist yet.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create userstyles dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Debug("watching userstyles", "dir", w.dir)

	w.apply()

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isStylesheet(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(w.settle)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("userstyles watcher error", "error", err)
		case <-timer.C:
			w.apply()
		}
	}
}

func (w *Watcher) apply() {
	css, err := Load(w.dir)
	if err != nil {
		w.logger.Warn("failed to load userstyles", "error", err)
		return
	}
	if css == w.last {
		return
	}
	if err := w.inject.InjectCSS(css); err != nil {
		w.logger.Warn("failed to inject userstyles", "error", err)
		return
	}
	w.last = css
	w.logger.Info("userstyles applied", "bytes", len(css))
}
