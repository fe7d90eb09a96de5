// SPDX-License-Identifier: MPL-2.0

package starkmod

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultMaxManifestSize bounds manifest files read from disk.
const DefaultMaxManifestSize = 1 << 20

var (
	// ErrDuplicateModule is returned when a manifest declares the same module name twice.
	ErrDuplicateModule = errors.New("duplicate module")
	// ErrManifestTooLarge is returned when a manifest exceeds DefaultMaxManifestSize.
	ErrManifestTooLarge = errors.New("manifest too large")
)

type (
	// Entry is a module declared in a manifest together with its execution options.
	Entry struct {
		Module
		// Sandbox selects isolated execution. Nil means "use the configured default".
		Sandbox *bool
		// Deps seeds the isolated namespace. Ignored for shared execution.
		Deps map[string]any
	}

	// Manifest is an ordered list of module entries.
	Manifest struct {
		// Path is the file the manifest was read from (may be empty).
		Path string
		// Modules preserves declaration order, which is also execution order.
		Modules []Entry
	}

	// ManifestError locates a manifest problem by file, entry index and module name.
	ManifestError struct {
		Path  string
		Index int
		Name  ModuleName
		Err   error
	}

	rawManifest struct {
		Module []rawEntry `toml:"module"`
	}

	rawEntry struct {
		Name    string         `toml:"name"`
		URL     any            `toml:"url"`
		Sandbox *bool          `toml:"sandbox"`
		Deps    map[string]any `toml:"deps"`
	}
)

// Error implements the error interface for ManifestError.
func (e *ManifestError) Error() string {
	loc := fmt.Sprintf("module[%d]", e.Index)
	if e.Name != "" {
		loc = fmt.Sprintf("module[%d] (%s)", e.Index, e.Name)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, loc, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

// Unwrap returns the underlying error.
func (e *ManifestError) Unwrap() error { return e.Err }

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string, getenv func(string) string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if info.Size() > DefaultMaxManifestSize {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", path, ErrManifestTooLarge, info.Size(), DefaultMaxManifestSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, path, getenv)
}

// ParseManifest decodes a TOML manifest, expands URL variables with getenv
// and validates every entry. Unknown keys are rejected.
func ParseManifest(data []byte, path string, getenv func(string) string) (*Manifest, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var raw rawManifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := &Manifest{Path: path, Modules: make([]Entry, 0, len(raw.Module))}
	seen := make(map[ModuleName]int, len(raw.Module))
	for i, re := range raw.Module {
		entry, err := re.toEntry(getenv)
		if err != nil {
			return nil, &ManifestError{Path: path, Index: i, Name: ModuleName(re.Name), Err: err}
		}
		if first, dup := seen[entry.Name]; dup {
			return nil, &ManifestError{
				Path:  path,
				Index: i,
				Name:  entry.Name,
				Err:   fmt.Errorf("%w: already declared by module[%d]", ErrDuplicateModule, first),
			}
		}
		seen[entry.Name] = i
		m.Modules = append(m.Modules, entry)
	}
	return m, nil
}

// Lookup returns the entry declared under name.
func (m *Manifest) Lookup(name ModuleName) (Entry, bool) {
	for _, e := range m.Modules {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func (re rawEntry) toEntry(getenv func(string) string) (Entry, error) {
	urls, err := urlList(re.URL)
	if err != nil {
		return Entry{}, err
	}
	for i, u := range urls {
		expanded, err := ExpandURL(u, getenv)
		if err != nil {
			return Entry{}, err
		}
		urls[i] = expanded
	}

	entry := Entry{
		Module:  New(re.Name, urls...),
		Sandbox: re.Sandbox,
		Deps:    re.Deps,
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// urlList normalizes the manifest "url" field, which may be a single string
// or an array of strings.
func urlList(v any) ([]string, error) {
	switch u := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{u}, nil
	case []any:
		out := make([]string, 0, len(u))
		for i, item := range u {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("url[%d]: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("url: expected string or array of strings, got %T", v)
	}
}
