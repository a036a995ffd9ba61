package models

import (
	"encoding/json"
	"time"
)

// Change kinds recorded in the change log. Field-level kinds carry the
// column name and both values; relationship kinds carry the linked
// dimension's display value.
const (
	ChangeFieldUpdated    = "field_updated"
	ChangeFieldInserted   = "field_inserted"
	ChangeGenreAdded      = "genre_added"
	ChangeCastAdded       = "cast_added"
	ChangeCrewAdded       = "crew_added"
	ChangeCompanyAdded    = "company_added"
	ChangeLanguageAdded   = "language_added"
	ChangeCountryAdded    = "country_added"
	ChangeCollectionAdded = "collection_added"
	ChangeSeasonAdded     = "season_added"
	ChangeSeasonUpdated   = "season_updated"
	ChangeEpisodeAdded    = "episode_added"
	ChangeEpisodeUpdated  = "episode_updated"
)

// Subject kinds.
const (
	SubjectMovie  = "movie"
	SubjectSeries = "series"
)

// ChangeLogEntry is one append-only audit record.
type ChangeLogEntry struct {
	ID            string          `json:"id" db:"id"`
	SubjectID     int64           `json:"subject_id" db:"subject_id"`
	SubjectKind   string          `json:"subject_kind" db:"subject_kind"`
	SubjectTitle  string          `json:"subject_title" db:"subject_title"`
	ChangeKind    string          `json:"change_kind" db:"change_kind"`
	FieldName     *string         `json:"field_name,omitempty" db:"field_name"`
	PreviousValue *string         `json:"previous_value,omitempty" db:"previous_value"`
	CurrentValue  *string         `json:"current_value,omitempty" db:"current_value"`
	Context       json.RawMessage `json:"context,omitempty" db:"context"`
	Source        string          `json:"source" db:"source"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ChangeLogFilter selects entries for the query surface. Zero values
// mean "no constraint"; Limit defaults to 100.
type ChangeLogFilter struct {
	SubjectID   int64
	SubjectKind string
	ChangeKind  string
	Since       *time.Time
	Until       *time.Time
	Limit       int
}

// SubjectFreshness summarizes the most recent change per subject.
type SubjectFreshness struct {
	SubjectID     int64     `json:"subject_id" db:"subject_id"`
	SubjectKind   string    `json:"subject_kind" db:"subject_kind"`
	SubjectTitle  string    `json:"subject_title" db:"subject_title"`
	LastChangedAt time.Time `json:"last_changed_at" db:"last_changed_at"`
	ChangeCount   int       `json:"change_count" db:"change_count"`
}
