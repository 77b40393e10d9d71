package unit

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// DelegateManifestName is the archive entry listing delegate template names,
// one per line. Deployment tooling outside this core consumes it.
const DelegateManifestName = "META/delegates"

// archiveEntrySuffix is appended to unit names to form archive entry names.
const archiveEntrySuffix = ".json"

// ErrNotFound indicates a requested unit does not exist. It is distinct from
// a compile error: hosts may fall through to other resolution strategies.
var ErrNotFound = fmt.Errorf("unit not found")

// ArchiveWriter packages compiled units into a zip archive with one named
// binary entry per unit plus a delegate manifest. Entries are written in a
// deterministic order with fixed timestamps so that identical inputs yield
// identical archives.
type ArchiveWriter struct {
	units     []*Unit
	delegates map[string]struct{}
	w         io.Writer
	closed    bool
}

// NewArchiveWriter returns an ArchiveWriter that writes to w on Close.
func NewArchiveWriter(w io.Writer) *ArchiveWriter {
	return &ArchiveWriter{
		w:         w,
		delegates: map[string]struct{}{},
	}
}

// Add appends one unit to the archive. Delegate templates are recorded in
// the manifest automatically.
func (a *ArchiveWriter) Add(u *Unit) error {
	if a.closed {
		return fmt.Errorf("unit: archive already closed")
	}
	a.units = append(a.units, u)
	if u.Delegate() && u.Kind() == KindMain {
		a.delegates[u.TemplateName()] = struct{}{}
	}
	return nil
}

// Close writes all entries and the manifest. Entries are ordered by unit
// name so packaging is independent of compilation order.
func (a *ArchiveWriter) Close() error {
	if a.closed {
		return fmt.Errorf("unit: archive already closed")
	}
	a.closed = true

	sorted := make([]*Unit, len(a.units))
	copy(sorted, a.units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})

	zw := zip.NewWriter(a.w)
	for _, u := range sorted {
		data, err := Marshal(u)
		if err != nil {
			return fmt.Errorf("unit: marshal %s: %w", u.Name(), err)
		}
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     u.Name() + archiveEntrySuffix,
			Method:   zip.Deflate,
			Modified: time.Time{},
		})
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(a.delegates))
	for name := range a.delegates {
		names = append(names, name)
	}
	sort.Strings(names)
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     DelegateManifestName,
		Method:   zip.Deflate,
		Modified: time.Time{},
	})
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(strings.Join(names, "\n"))); err != nil {
		return err
	}
	return zw.Close()
}

// Set is an in-memory collection of compiled units, keyed by unit name. It
// is immutable after construction and implements unit resolution for render
// instances.
type Set struct {
	units     map[string]*Unit
	names     []string // sorted
	delegates []string
}

// NewSet builds a Set from the given units.
func NewSet(units []*Unit) *Set {
	s := &Set{units: make(map[string]*Unit, len(units))}
	for _, u := range units {
		s.units[u.Name()] = u
		if u.Delegate() && u.Kind() == KindMain {
			s.delegates = append(s.delegates, u.TemplateName())
		}
	}
	for name := range s.units {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	sort.Strings(s.delegates)
	return s
}

// ResolveUnit returns the unit with the given name, or ErrNotFound.
func (s *Set) ResolveUnit(name string) (*Unit, error) {
	u, ok := s.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return u, nil
}

// Names returns the sorted unit names. The returned slice is a copy.
func (s *Set) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// DelegateNames returns the sorted delegate template names.
func (s *Set) DelegateNames() []string {
	names := make([]string, len(s.delegates))
	copy(names, s.delegates)
	return names
}

// Len returns the number of units in the set.
func (s *Set) Len() int {
	return len(s.units)
}

// ReadArchive reads a packaged archive back into a Set.
func ReadArchive(r io.ReaderAt, size int64) (*Set, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	var units []*Unit
	var delegates []string
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, rc); err != nil {
			rc.Close()
			return nil, err
		}
		rc.Close()
		if f.Name == DelegateManifestName {
			if buf.Len() > 0 {
				delegates = strings.Split(buf.String(), "\n")
			}
			continue
		}
		if !strings.HasSuffix(f.Name, archiveEntrySuffix) {
			continue
		}
		u, err := Unmarshal(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("unit: entry %s: %w", f.Name, err)
		}
		units = append(units, u)
	}
	set := NewSet(units)
	set.delegates = delegates
	sort.Strings(set.delegates)
	return set, nil
}
