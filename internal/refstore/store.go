// Package refstore loads named reference sources from YAML files and caches
// them for the lifetime of a build.
package refstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// Source is a named, file-backed collection of references keyed by citation key.
type Source struct {
	Name string
	Path string // Empty if no backing file was found
	refs map[string]reference.Reference
}

// Lookup returns the reference for key.
func (s *Source) Lookup(key string) (reference.Reference, bool) {
	ref, ok := s.refs[key]
	return ref, ok
}

// Keys returns all citation keys in lexicographic order.
func (s *Source) Keys() []string {
	keys := make([]string, 0, len(s.refs))
	for k := range s.refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of references in the source.
func (s *Source) Len() int {
	return len(s.refs)
}

// NewSource builds an in-memory source. Useful for tests and tools that
// already hold decoded references.
func NewSource(name string, refs map[string]reference.Reference) *Source {
	if refs == nil {
		refs = make(map[string]reference.Reference)
	}
	return &Source{Name: name, refs: refs}
}

// Store resolves source names to files under a data directory and memoizes
// every load, failed or not.
type Store struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*Source
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a store reading <dir>/<name>.yaml files.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: zap.NewNop(),
		cache:  make(map[string]*Source),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the named source. A missing or malformed file yields an
// empty source and a warning; it is cached like a successful load so the
// file is read at most once per build.
func (s *Store) Load(name string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.cache[name]; ok {
		return src
	}

	src, err := s.read(name)
	if err != nil {
		s.logger.Warn("error loading reference file",
			zap.String("source", name),
			zap.Error(err))
		src = NewSource(name, nil)
	}

	s.cache[name] = src
	return src
}

// Reset drops every cached source. Call it between builds only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Source)
}

// ErrSourceNotFound is returned when no file backs a source name.
var ErrSourceNotFound = errors.New("reference file not found")

// Path returns the file backing a source name, preferring .yaml over .yml.
func (s *Store) Path(name string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s.yaml in %s", ErrSourceNotFound, name, s.dir)
}

func (s *Store) read(name string) (*Source, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	refs, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	src := NewSource(name, refs)
	src.Path = path
	return src, nil
}

// ReadFile parses a YAML reference file into typed references.
func ReadFile(path string) (map[string]reference.Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	var records map[string]reference.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	refs := make(map[string]reference.Reference, len(records))
	for key, rec := range records {
		refs[key] = rec.Reference()
	}
	return refs, nil
}

// Names lists the source names available in the data directory.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing reference sources: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Entry is a reference record with its citation key, in file order.
type Entry struct {
	Key    string
	Record reference.Record
}

// AppendRecords appends entries to the YAML reference file at path,
// creating it if needed. Existing content, comments included, is kept
// as is; callers must skip keys the file already defines.
func AppendRecords(path string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		var val yaml.Node
		if err := val.Encode(e.Record); err != nil {
			return fmt.Errorf("encoding %s: %w", e.Key, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key}, &val)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding references: %w", err)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		out = append([]byte("\n"), out...)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
