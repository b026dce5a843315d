package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/godilite/review-insights/internal/ingest"
)

const (
	RawFile    = "reviews-cache.json"
	ParsedFile = "reviews-parsed.json"
)

type Stats struct {
	Size  int `json:"size"`
	Lines int `json:"lines"`
}

// Raw is the downloaded export as it arrived.
type Raw struct {
	CSV         string `json:"csv"`
	LastUpdated string `json:"lastUpdated"`
	Stats       Stats  `json:"stats"`
}

// Parsed is the merged row collection derived from every source.
type Parsed struct {
	Headers     []string       `json:"headers"`
	Rows        []ingest.Row   `json:"rows"`
	LastUpdated string         `json:"lastUpdated"`
	Sources     map[string]int `json:"sources,omitempty"`
}

// NewRaw stamps csv with its size, logical line count and the given time.
func NewRaw(csv string, lines int, at time.Time) Raw {
	return Raw{
		CSV:         csv,
		LastUpdated: at.UTC().Format(time.RFC3339),
		Stats:       Stats{Size: len(csv), Lines: lines},
	}
}

// Store keeps the two snapshot artifacts in one directory. Every write
// replaces the previous file as a whole.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) WriteRaw(raw Raw) error {
	return s.write(RawFile, raw)
}

func (s *Store) WriteParsed(parsed Parsed) error {
	return s.write(ParsedFile, parsed)
}

func (s *Store) ReadRaw() (Raw, error) {
	var raw Raw
	err := s.read(RawFile, &raw)
	return raw, err
}

func (s *Store) ReadParsed() (Parsed, error) {
	var parsed Parsed
	err := s.read(ParsedFile, &parsed)
	return parsed, err
}

// Staged holds artifacts written to temp files but not yet visible to
// readers. Commit publishes them; Discard drops them.
type Staged interface {
	Commit() error
	Discard()
}

type stagedFile struct {
	tmp  string
	name string
}

type staged struct {
	dir   string
	files []stagedFile
}

// Stage encodes raw and parsed into temp files next to their targets. Nothing
// a reader can see changes until Commit.
func (s *Store) Stage(raw Raw, parsed Parsed) (Staged, error) {
	st := &staged{dir: s.dir}
	for _, a := range []struct {
		name string
		v    any
	}{{ParsedFile, parsed}, {RawFile, raw}} {
		tmp, err := s.writeTemp(a.name, a.v)
		if err != nil {
			st.Discard()
			return nil, err
		}
		st.files = append(st.files, stagedFile{tmp: tmp, name: a.name})
	}
	return st, nil
}

func (st *staged) Commit() error {
	for i, f := range st.files {
		if err := os.Rename(f.tmp, filepath.Join(st.dir, f.name)); err != nil {
			for _, rest := range st.files[i:] {
				os.Remove(rest.tmp)
			}
			return fmt.Errorf("replace %s: %w", f.name, err)
		}
	}
	st.files = nil
	return nil
}

func (st *staged) Discard() {
	for _, f := range st.files {
		os.Remove(f.tmp)
	}
	st.files = nil
}

// write goes through a temp file and a rename so readers never see a
// half-written artifact.
func (s *Store) write(name string, v any) error {
	tmp, err := s.writeTemp(name, v)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeTemp(name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return tmp.Name(), nil
}

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
