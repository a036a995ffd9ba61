package models

// Outcome describes what a reconciliation run did to the top-level row.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// SyncResult reports one committed reconciliation. A failed run returns
// an error instead; the store is untouched in that case.
type SyncResult struct {
	SubjectID   int64   `json:"subject_id"`
	SubjectKind string  `json:"subject_kind"`
	Outcome     Outcome `json:"outcome"`

	FieldsChanged []string       `json:"fields_changed,omitempty"`
	LinksAdded    map[string]int `json:"links_added,omitempty"`

	ChildrenInserted int `json:"children_inserted"`
	ChildrenUpdated  int `json:"children_updated"`
}

// Changed reports whether the run wrote anything at all.
func (r *SyncResult) Changed() bool {
	return r.Outcome != OutcomeUnchanged ||
		len(r.FieldsChanged) > 0 ||
		len(r.LinksAdded) > 0 ||
		r.ChildrenInserted > 0 ||
		r.ChildrenUpdated > 0
}

// AddLink increments the counter for one relation kind.
func (r *SyncResult) AddLink(relation string) {
	if r.LinksAdded == nil {
		r.LinksAdded = map[string]int{}
	}
	r.LinksAdded[relation]++
}
