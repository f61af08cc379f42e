package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mistletoe/internal/token"
)

const defaultDebounce = 200 * time.Millisecond

// VocabularyWatcher reloads a vocabulary file into a token.Holder whenever
// the file changes. A file that fails to parse leaves the previous
// vocabulary in place.
type VocabularyWatcher struct {
	Path     string
	Holder   *token.Holder
	Logger   *zap.Logger
	Debounce time.Duration
}

// Reload reads Path once and stores it in Holder.
func (w VocabularyWatcher) Reload() error {
	v, err := LoadVocabularyFile(w.Path)
	if err != nil {
		return err
	}
	w.Holder.Store(v)
	return nil
}

// Run watches until ctx is done. The parent directory is watched so editors
// that replace the file by rename are picked up.
func (w VocabularyWatcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	target := filepath.Clean(w.Path)
	logger.Info("watching vocabulary", zap.String("path", target))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vocabulary watcher error", zap.Error(err))
		case <-timer.C:
			if err := w.Reload(); err != nil {
				logger.Warn("vocabulary reload failed; keeping previous lists", zap.Error(err))
				continue
			}
			v := w.Holder.Vocabulary()
			logger.Info("vocabulary reloaded",
				zap.Int("adjectives", len(v.Adjectives)),
				zap.Int("nouns", len(v.Nouns)))
		}
	}
}
