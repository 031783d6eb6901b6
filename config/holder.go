package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/reoring/goform"
)

// Holder provides thread-safe access to a definition with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	def      *Definition
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Definition)
	onReload []func(error)
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHolder creates a holder and loads the initial definition.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	def, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		def:    def,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current definition.
func (h *Holder) Get() *Definition {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.def
}

// Reload reloads the definition from disk. On error the old definition is
// kept.
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading form definition")

	newDef, err := Load(h.path)
	h.mu.RLock()
	reloadHooks := h.onReload
	h.mu.RUnlock()
	for _, fn := range reloadHooks {
		fn(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("reload failed, keeping old definition")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldDef := h.def
	h.def = newDef
	listeners := h.onChange
	h.mu.Unlock()

	h.logChanges(oldDef, newDef)

	for _, fn := range listeners {
		fn(newDef)
	}

	h.logger.Info().Msg("form definition reloaded")
	return nil
}

// OnChange registers a callback run with every successfully reloaded
// definition.
func (h *Holder) OnChange(fn func(*Definition)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback run after every reload attempt with its
// error, nil on success.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// WatchFile starts watching the definition file. Changes trigger a reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching form definition for changes")
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// atomic save = create
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("form definition changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// logChanges reports what a reload changes for forms built from the
// definition. Server settings are read once at startup.
func (h *Holder) logChanges(old, new *Definition) {
	if old.Name != new.Name {
		h.logger.Info().Str("old", old.Name).Str("new", new.Name).Msg("form renamed")
	}
	if old.Language != new.Language {
		h.logger.Info().Str("old", old.Language).Str("new", new.Language).Msg("message language changed")
	}
	if !reflect.DeepEqual(old.InitialValues, new.InitialValues) {
		h.logger.Info().Msg("initial values changed; live form state is rebuilt")
	}

	added, removed, changed := fieldRuleChanges(old.Validation.Fields, new.Validation.Fields)
	if len(added)+len(removed)+len(changed) > 0 {
		h.logger.Info().
			Strs("added", added).
			Strs("removed", removed).
			Strs("changed", changed).
			Msg("validation rules changed")
	}
	if !reflect.DeepEqual(old.Validation.On, new.Validation.On) || old.Validation.Initial != new.Validation.Initial {
		h.logger.Info().Msg("validation triggers changed")
	}

	switch {
	case old.Submit == nil && new.Submit != nil:
		h.logger.Info().Str("endpoint", new.Submit.Endpoint).Msg("submission enabled")
	case old.Submit != nil && new.Submit == nil:
		h.logger.Warn().Str("endpoint", old.Submit.Endpoint).Msg("submission disabled")
	case old.Submit != nil:
		if old.Submit.Method != new.Submit.Method || old.Submit.Endpoint != new.Submit.Endpoint ||
			old.Submit.BaseURL != new.Submit.BaseURL {
			h.logger.Info().
				Str("old", old.Submit.Method+" "+old.Submit.BaseURL+old.Submit.Endpoint).
				Str("new", new.Submit.Method+" "+new.Submit.BaseURL+new.Submit.Endpoint).
				Msg("submit target changed")
		}
	}

	if old.Server != new.Server || old.Metrics != new.Metrics {
		h.logger.Warn().Msg("server or metrics settings changed; restart required")
	}
}

// fieldRuleChanges compares two rule tables by field path, in the order the
// paths appear in their definitions.
func fieldRuleChanges(old, new goform.FieldMap[[]RuleSpec]) (added, removed, changed []string) {
	for _, k := range new.Keys() {
		if !old.Has(k) {
			added = append(added, k)
		} else if !reflect.DeepEqual(old.Value(k), new.Value(k)) {
			changed = append(changed, k)
		}
	}
	for _, k := range old.Keys() {
		if !new.Has(k) {
			removed = append(removed, k)
		}
	}
	return added, removed, changed
}
