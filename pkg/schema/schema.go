package schema

// FieldKind tells the comparator how to interpret a column's values.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindInteger FieldKind = "integer"
	KindFloat   FieldKind = "float"
	KindDate    FieldKind = "date"
)

// Field is one diffable column of an entity table.
type Field struct {
	Column string
	Kind   FieldKind
}

// Descriptor describes an entity table to the generic comparator and
// repositories: its name, identity column, and the closed set of
// columns that participate in diffing. Candidate fields outside this
// set are skipped, never written.
type Descriptor struct {
	Table              string
	IDColumn           string
	LastModifiedColumn string
	Fields             []Field
}

// Field returns the descriptor for a column, if it is diffable.
func (d Descriptor) Field(column string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the diffable column names in declaration order.
func (d Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

var Movies = Descriptor{
	Table:              "movies",
	IDColumn:           "movie_id",
	LastModifiedColumn: "last_updated",
	Fields: []Field{
		{Column: "movie_title", Kind: KindText},
		{Column: "overview", Kind: KindText},
		{Column: "release_date", Kind: KindDate},
		{Column: "runtime", Kind: KindInteger},
		{Column: "popularity", Kind: KindFloat},
		{Column: "vote_average", Kind: KindFloat},
		{Column: "vote_count", Kind: KindInteger},
		{Column: "poster_path", Kind: KindText},
		{Column: "backdrop_path", Kind: KindText},
		{Column: "original_language", Kind: KindText},
		{Column: "status", Kind: KindText},
		{Column: "budget", Kind: KindInteger},
		{Column: "revenue", Kind: KindInteger},
	},
}

var Series = Descriptor{
	Table:              "series",
	IDColumn:           "series_id",
	LastModifiedColumn: "last_updated",
	Fields: []Field{
		{Column: "name", Kind: KindText},
		{Column: "overview", Kind: KindText},
		{Column: "first_air_date", Kind: KindDate},
		{Column: "last_air_date", Kind: KindDate},
		{Column: "number_of_seasons", Kind: KindInteger},
		{Column: "number_of_episodes", Kind: KindInteger},
		{Column: "popularity", Kind: KindFloat},
		{Column: "vote_average", Kind: KindFloat},
		{Column: "vote_count", Kind: KindInteger},
		{Column: "poster_path", Kind: KindText},
		{Column: "backdrop_path", Kind: KindText},
		{Column: "original_language", Kind: KindText},
		{Column: "status", Kind: KindText},
		{Column: "homepage", Kind: KindText},
		{Column: "imdb_id", Kind: KindText},
	},
}

var Seasons = Descriptor{
	Table:              "seasons",
	IDColumn:           "season_id",
	LastModifiedColumn: "last_updated",
	Fields: []Field{
		{Column: "series_id", Kind: KindInteger},
		{Column: "season_number", Kind: KindInteger},
		{Column: "name", Kind: KindText},
		{Column: "overview", Kind: KindText},
		{Column: "air_date", Kind: KindDate},
		{Column: "poster_path", Kind: KindText},
		{Column: "episode_count", Kind: KindInteger},
	},
}

var Episodes = Descriptor{
	Table:              "episodes",
	IDColumn:           "episode_id",
	LastModifiedColumn: "last_updated",
	Fields: []Field{
		{Column: "series_id", Kind: KindInteger},
		{Column: "season_id", Kind: KindInteger},
		{Column: "episode_number", Kind: KindInteger},
		{Column: "name", Kind: KindText},
		{Column: "overview", Kind: KindText},
		{Column: "air_date", Kind: KindDate},
		{Column: "runtime", Kind: KindInteger},
		{Column: "still_path", Kind: KindText},
		{Column: "vote_average", Kind: KindFloat},
		{Column: "vote_count", Kind: KindInteger},
	},
}
