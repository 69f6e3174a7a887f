// Package prefs persists viewer preferences between runs.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	prefsVersion  = 1
	prefsFileName = "prefs.json"
	appDirName    = "dataviewer"
)

// Prefs is loaded from and saved to ~/.local/state/dataviewer/prefs.json
// (respecting XDG_STATE_HOME).
type Prefs struct {
	Version     int              `json:"version"`
	Tables      map[string]Table `json:"tables"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

// Table holds the remembered view of one table.
type Table struct {
	// Columns are the visible columns; empty means the table defaults.
	Columns  []string `json:"columns,omitempty"`
	PageSize int      `json:"pageSize,omitempty"`
}

// New returns empty preferences.
func New() *Prefs {
	return &Prefs{Version: prefsVersion, Tables: make(map[string]Table)}
}

// Table returns the preferences of name.
func (p *Prefs) Table(name string) Table {
	if p == nil {
		return Table{}
	}
	return p.Tables[name]
}

// SetColumns remembers the visible columns of table.
func (p *Prefs) SetColumns(table string, columns []string) {
	t := p.Tables[table]
	t.Columns = append([]string(nil), columns...)
	sort.Strings(t.Columns)
	p.Tables[table] = t
}

// SetPageSize remembers the page size of table.
func (p *Prefs) SetPageSize(table string, size int) {
	t := p.Tables[table]
	t.PageSize = size
	p.Tables[table] = t
}

// Clone returns a deep copy, safe to hand to a background save.
func (p *Prefs) Clone() *Prefs {
	cp := *p
	cp.Tables = make(map[string]Table, len(p.Tables))
	for k, v := range p.Tables {
		v.Columns = append([]string(nil), v.Columns...)
		cp.Tables[k] = v
	}
	return &cp
}

// Store handles loading and saving Prefs to disk.
type Store struct {
	dir string
}

// NewStore creates a Store in dir. The directory is created on the first
// Save. Pass an empty string to use the default XDG state path.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultDir()
	}
	return &Store{dir: dir}
}

// Path returns the full path to the prefs file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, prefsFileName)
}

// Load reads prefs from disk. A missing file yields empty prefs.
func (s *Store) Load() (*Prefs, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.Wrap(err, "reading prefs")
	}

	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", s.Path())
	}
	if p.Tables == nil {
		p.Tables = make(map[string]Table)
	}
	return &p, nil
}

// Save writes p to disk using an atomic temp-file-then-rename.
func (s *Store) Save(p *Prefs) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(err, "creating prefs dir")
	}

	p.Version = prefsVersion
	p.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling prefs")
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".prefs-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return errors.Wrap(err, "renaming prefs file")
	}
	committed = true
	return nil
}

// defaultDir returns ~/.local/state/dataviewer, respecting XDG_STATE_HOME.
func defaultDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
