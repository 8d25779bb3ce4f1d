package live

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// watch reopens the page when the template or data file changes. The
// parent directories are watched so that files replaced by rename are
// still seen.
func (s *Server) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, name := range []string{s.opts.Source.Template, s.opts.Source.Data} {
		if name == "" {
			continue
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			w.Close()
			return err
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return err
		}
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				abs, err := filepath.Abs(ev.Name)
				if err != nil || !files[abs] {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					s.loop.Post(s.reload)
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file watcher error", "error", err)
			}
		}
	}()
	return nil
}

// reload reopens the page and pushes it to every client. A page that fails
// to open is logged and the previous one stays live.
func (s *Server) reload() {
	if err := s.open(); err != nil {
		s.logger.Error("reload failed", "error", err)
		return
	}
	s.logger.Info("page reloaded", "template", s.opts.Source.Template)
}
