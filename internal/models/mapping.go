package models

const (
	// Unmapped marks a source column with no standard field correspondence.
	Unmapped = "Unmapped"
	// IdentifierField is the mandatory standard field used as the deduplication key.
	IdentifierField = "vendor_id"
)

// MappingEntry records which standard field a single source column maps to.
type MappingEntry struct {
	Source        string
	SourceField   string
	StandardField string
	Sample        Cell
}

// IsMapped reports whether the entry points at a standard field.
func (e MappingEntry) IsMapped() bool {
	return e.StandardField != "" && e.StandardField != Unmapped
}

// MappingTable is the ordered set of mapping entries for all sources.
type MappingTable struct {
	Entries []MappingEntry
}

// ForSource returns the entries whose Source equals the given identifier.
func (t *MappingTable) ForSource(source string) []MappingEntry {
	var entries []MappingEntry

	for _, e := range t.Entries {
		if e.Source == source {
			entries = append(entries, e)
		}
	}

	return entries
}

// HasIdentifier reports whether any entry of the source maps to the identifier field.
func (t *MappingTable) HasIdentifier(source string) bool {
	for _, e := range t.ForSource(source) {
		if e.StandardField == IdentifierField {
			return true
		}
	}

	return false
}

// Sources returns the distinct source identifiers in order of first appearance.
func (t *MappingTable) Sources() []string {
	seen := make(map[string]bool)

	var sources []string

	for _, e := range t.Entries {
		if !seen[e.Source] {
			seen[e.Source] = true
			sources = append(sources, e.Source)
		}
	}

	return sources
}
