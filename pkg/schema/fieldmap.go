package schema

// FieldEntry is one (column, candidate value) pair.
type FieldEntry struct {
	Column string
	Value  any
}

// FieldMap is an insertion-ordered set of candidate column values.
// Order matters: change tuples and audit entries come out in the order
// the candidate declared its fields.
type FieldMap struct {
	entries []FieldEntry
}

func (m *FieldMap) Set(column string, value any) {
	for i := range m.entries {
		if m.entries[i].Column == column {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, FieldEntry{Column: column, Value: value})
}

func (m *FieldMap) Get(column string) (any, bool) {
	for _, e := range m.entries {
		if e.Column == column {
			return e.Value, true
		}
	}
	return nil, false
}

func (m *FieldMap) Len() int {
	return len(m.entries)
}

func (m *FieldMap) Entries() []FieldEntry {
	return m.entries
}

func (m *FieldMap) Columns() []string {
	cols := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		cols = append(cols, e.Column)
	}
	return cols
}
