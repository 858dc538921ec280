package presets

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Extension is appended to a preset name to form its file name on the host.
const Extension = ".bbp"

// MaxPresets bounds the number of user presets a Bank holds.
const MaxPresets = 512

// validName is the regex for sanitizing preset names.
var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidName    = errors.New("invalid preset name")
	ErrBankFull       = errors.New("preset bank full")
)

type entry struct {
	Preset   Preset
	Modified time.Time
}

// Bank is an in-memory set of user presets that is synced to a host
// directory, one file per preset.
type Bank struct {
	Mu         sync.RWMutex
	presets    map[string]*entry
	dirtyNames map[string]bool
	dirty      bool
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		presets:    make(map[string]*entry),
		dirtyNames: make(map[string]bool),
	}
}

// DefaultDir is where user presets live unless a front end says otherwise.
func DefaultDir() (string, error) {
	return homedir.Expand("~/.evaluator/presets")
}

// Save stores p under p.Name, overwriting an existing preset of that name.
func (b *Bank) Save(p Preset) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	if !validName.MatchString(p.Name) {
		return ErrInvalidName
	}
	e, ok := b.presets[p.Name]
	if !ok {
		if len(b.presets) >= MaxPresets {
			return ErrBankFull
		}
		e = &entry{}
		b.presets[p.Name] = e
	}
	e.Preset = p
	e.Modified = time.Now()

	b.dirtyNames[p.Name] = true
	b.dirty = true
	return nil
}

// Load returns the preset stored under name.
func (b *Bank) Load(name string) (Preset, error) {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	if !validName.MatchString(name) {
		return Preset{}, ErrInvalidName
	}
	e, ok := b.presets[name]
	if !ok {
		return Preset{}, ErrPresetNotFound
	}
	return e.Preset, nil
}

// Delete removes a preset. The file is removed on the next PersistTo.
func (b *Bank) Delete(name string) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	if _, ok := b.presets[name]; !ok {
		return ErrPresetNotFound
	}
	delete(b.presets, name)

	b.dirtyNames[name] = true
	b.dirty = true
	return nil
}

// IsDirty reports whether the bank has changes not yet written by PersistTo.
func (b *Bank) IsDirty() bool {
	b.Mu.RLock()
	defer b.Mu.RUnlock()
	return b.dirty
}

// List returns the sorted preset names.
func (b *Bank) List() []string {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	names := make([]string, 0, len(b.presets))
	for k := range b.presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LoadFrom populates the Bank from preset files in the given host directory.
// Files with invalid names or undecodable contents are skipped silently.
// Returns nil if the directory does not exist (first run).
func (b *Bank) LoadFrom(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Extension) {
			continue
		}
		name := strings.TrimSuffix(de.Name(), Extension)
		if !validName.MatchString(name) || len(b.presets) >= MaxPresets {
			continue
		}

		full := filepath.Join(dir, de.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		p := Preset{Name: name}
		if err := p.UnmarshalBinary(raw); err != nil {
			continue
		}

		e := &entry{Preset: p, Modified: time.Now()}
		if info, err := os.Stat(full); err == nil {
			e.Modified = info.ModTime()
		}
		b.presets[name] = e
	}
	return nil
}

// PersistTo writes all dirty presets to the given host directory and removes
// the files of deleted ones. The directory is created if it does not exist.
// Returns the first error encountered; failed presets stay dirty.
func (b *Bank) PersistTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Snapshot under the lock, then release before doing I/O.
	b.Mu.Lock()
	snapshot := make(map[string]entry)
	var deleted []string
	for name := range b.dirtyNames {
		if e, ok := b.presets[name]; ok {
			snapshot[name] = *e
		} else {
			deleted = append(deleted, name)
		}
		delete(b.dirtyNames, name)
	}
	b.dirty = false
	b.Mu.Unlock()

	var firstErr error
	fail := func(name string, err error) {
		b.Mu.Lock()
		b.dirtyNames[name] = true
		b.dirty = true
		b.Mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, name := range deleted {
		err := os.Remove(filepath.Join(dir, name+Extension))
		if err != nil && !os.IsNotExist(err) {
			fail(name, err)
		}
	}

	for name, e := range snapshot {
		data, err := e.Preset.MarshalBinary()
		if err != nil {
			fail(name, err)
			continue
		}
		path := filepath.Join(dir, name+Extension)
		if err := os.WriteFile(path, data, 0644); err != nil {
			fail(name, err)
			continue
		}
		_ = os.Chtimes(path, time.Now(), e.Modified)
	}

	return firstErr
}
