package document

import "github.com/rotisserie/eris"

// Migrations is the explicit mapping from legacy full type identifiers to
// their current replacements. Entries are added by hand when a type is
// renamed or moved; nothing is ever inferred. It is consulted before
// short-name fallback, and it is the only way to load documents whose short
// name has become ambiguous.
type Migrations struct {
	renames map[string]string
}

func NewMigrations() *Migrations {
	return &Migrations{renames: make(map[string]string)}
}

// Add registers legacy -> current. Re-mapping an already-registered legacy id
// is rejected; fix the existing entry instead.
func (m *Migrations) Add(legacy, current string) error {
	if legacy == "" || current == "" {
		return eris.New("migration entries need both a legacy and a current id")
	}
	if legacy == current {
		return eris.Errorf("migration for %q maps to itself", legacy)
	}
	if existing, ok := m.renames[legacy]; ok {
		return eris.Errorf("migration for %q already maps to %q", legacy, existing)
	}
	m.renames[legacy] = current
	return nil
}

// Resolve returns the current id for a legacy one.
func (m *Migrations) Resolve(legacy string) (string, bool) {
	current, ok := m.renames[legacy]
	return current, ok
}

func (m *Migrations) Len() int { return len(m.renames) }
