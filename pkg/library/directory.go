// Package library manages a directory of law YAML files on disk, loading
// them into a service.Engine and optionally watching the directory for
// changes: the loader feeding the orchestration engine.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/regelrecht/pkg/lawdoc"
	"github.com/coolbeans/regelrecht/pkg/loader"
	"github.com/coolbeans/regelrecht/pkg/service"
)

// LoadEvent describes one file-triggered change to the engine's loaded
// laws, passed to an OnChange callback.
type LoadEvent struct {
	Path   string
	LawID  string
	Action string // "loaded", "reloaded", "unloaded", "error"
	Err    error
}

// Directory watches a filesystem directory of *.yaml/*.yml law documents
// and keeps a service.Engine's loaded laws in sync with it.
type Directory struct {
	mu       sync.RWMutex
	dir      string
	engine   *service.Engine
	loader   *loader.Loader
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(LoadEvent)
	log      zerolog.Logger

	// pathToLawID remembers which law a given file last loaded, so a
	// removed or re-parsed file can be unloaded/reloaded correctly.
	pathToLawID map[string]string
}

// NewDirectory builds a Directory manager for dir, backed by engine.
// Logging is disabled by default; call SetLogger to attach one.
func NewDirectory(dir string, engine *service.Engine) *Directory {
	return &Directory{
		dir:         dir,
		engine:      engine,
		loader:      loader.New(),
		pathToLawID: make(map[string]string),
		log:         zerolog.Nop(),
	}
}

// OnChange registers a callback invoked after every load/reload/unload.
func (d *Directory) OnChange(fn func(LoadEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// SetLogger attaches a logger the directory watch uses to report file
// load/reload/unload activity. Passing zerolog.Nop() (the default)
// silences it again.
func (d *Directory) SetLogger(logger zerolog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = logger
}

// LoadAll loads every *.yaml/*.yml file in the directory into the engine,
// collecting per-file errors rather than failing the whole batch on one
// bad document.
func (d *Directory) LoadAll() []LoadEvent {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return []LoadEvent{{Path: d.dir, Action: "error", Err: fmt.Errorf("reading directory %s: %w", d.dir, err)}}
	}

	var events []LoadEvent
	for _, entry := range entries {
		if entry.IsDir() || !isLawFile(entry.Name()) {
			continue
		}
		events = append(events, d.loadPath(filepath.Join(d.dir, entry.Name())))
	}
	return events
}

// loadPath loads a single file, unloading its previous law version first if
// this path was already loaded (a file edit is a replace, not an add).
func (d *Directory) loadPath(path string) LoadEvent {
	raw, err := os.ReadFile(path)
	if err != nil {
		return d.emit(LoadEvent{Path: path, Action: "error", Err: err})
	}

	law, _, err := d.loader.Load(raw)
	if err != nil {
		d.log.Error().Err(err).Str("path", path).Msg("rejected law file")
		return d.emit(LoadEvent{Path: path, Action: "error", Err: err})
	}

	d.mu.Lock()
	previous, hadPrevious := d.pathToLawID[path]
	d.mu.Unlock()

	action := "loaded"
	if hadPrevious && previous == law.LawID && d.engine.UnloadLaw(law.LawID) {
		action = "reloaded"
	}

	lawID, err := d.engine.LoadLaw(law)
	if err != nil {
		return d.emit(LoadEvent{Path: path, Action: "error", Err: err})
	}

	d.mu.Lock()
	d.pathToLawID[path] = lawID
	d.mu.Unlock()

	d.log.Debug().Str("path", path).Str("law_id", lawID).Str("action", action).Msg("law file applied")
	return d.emit(LoadEvent{Path: path, LawID: lawID, Action: action})
}

// unloadPath unloads whatever law a removed file had contributed. The
// engine indexes laws by law_id and drops every version at once
// (resolver.Index.Unload), so a removed file's law_id — remembered in
// pathToLawID from its original load — is all that's needed; the file
// itself no longer exists to re-read.
func (d *Directory) unloadPath(path string) LoadEvent {
	d.mu.Lock()
	lawID, ok := d.pathToLawID[path]
	delete(d.pathToLawID, path)
	d.mu.Unlock()

	if !ok {
		return LoadEvent{Path: path, Action: "unloaded"}
	}
	d.engine.UnloadLaw(lawID)
	d.log.Debug().Str("path", path).Str("law_id", lawID).Msg("law file removed")
	return d.emit(LoadEvent{Path: path, LawID: lawID, Action: "unloaded"})
}

func (d *Directory) emit(ev LoadEvent) LoadEvent {
	d.mu.RLock()
	cb := d.onChange
	d.mu.RUnlock()
	if cb != nil {
		cb(ev)
	}
	return ev
}

// Watch starts an fsnotify watch on the directory, applying every create,
// write, remove, or rename of a law file to the engine as it happens.
func (d *Directory) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	d.mu.Lock()
	d.watcher = watcher
	d.stopChan = make(chan struct{})
	d.mu.Unlock()

	go d.watchLoop()

	if err := watcher.Add(d.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", d.dir, err)
	}
	d.log.Info().Str("dir", d.dir).Msg("watching directory")
	return nil
}

// StopWatch stops the fsnotify watch started by Watch.
func (d *Directory) StopWatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopChan != nil {
		close(d.stopChan)
		d.stopChan = nil
	}
	if d.watcher != nil {
		d.watcher.Close()
		d.watcher = nil
	}
}

func (d *Directory) watchLoop() {
	for {
		select {
		case <-d.stopChan:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !isLawFile(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				d.unloadPath(event.Name)
			case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
				d.loadPath(event.Name)
			}
		case _, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func isLawFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// LoadFile validates and decodes a single law file outside of a directory
// scan, for callers that want to load one ad-hoc document (e.g. a command
// line argument) without standing up a Directory watch.
func LoadFile(path string) (*lawdoc.Law, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	law, _, err := loader.New().Load(raw)
	return law, err
}
