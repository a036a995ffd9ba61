package compare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/schema"
)

var testDesc = schema.Descriptor{
	Table:              "movies",
	IDColumn:           "movie_id",
	LastModifiedColumn: "last_updated",
	Fields: []schema.Field{
		{Column: "movie_title", Kind: schema.KindText},
		{Column: "overview", Kind: schema.KindText},
		{Column: "release_date", Kind: schema.KindDate},
		{Column: "runtime", Kind: schema.KindInteger},
		{Column: "vote_average", Kind: schema.KindFloat},
	},
}

func fieldMap(pairs ...any) *schema.FieldMap {
	fm := &schema.FieldMap{}
	for i := 0; i < len(pairs); i += 2 {
		fm.Set(pairs[i].(string), pairs[i+1])
	}
	return fm
}

func TestDiff_DetectsChangedFields(t *testing.T) {
	existing := map[string]any{
		"movie_title":  "Old Title",
		"vote_average": 7.0,
		"runtime":      int64(120),
	}
	candidate := fieldMap(
		"movie_title", "New Title",
		"vote_average", 7.2,
		"runtime", 120,
	)

	res := Diff(existing, candidate, testDesc, Options{})

	require.Len(t, res.Changes, 2)
	assert.Equal(t, "movie_title", res.Changes[0].Field)
	assert.Equal(t, "Old Title", res.Changes[0].Previous)
	assert.Equal(t, "New Title", res.Changes[0].Current)
	assert.Equal(t, "vote_average", res.Changes[1].Field)

	applied, ok := res.Applied.Get("movie_title")
	require.True(t, ok)
	assert.Equal(t, "New Title", applied)
	_, ok = res.Applied.Get("runtime")
	assert.False(t, ok, "unchanged column must not be applied")
}

func TestDiff_FloatTolerance(t *testing.T) {
	tests := []struct {
		name     string
		existing float64
		incoming float64
		changed  bool
	}{
		{"difference below tolerance", 7.0001, 7.0002, false},
		{"difference at tolerance boundary", 7.50, 7.5001, false},
		{"identical values", 6.5, 6.5, false},
		{"real change", 7.0, 7.2, true},
		{"small but meaningful change", 7.0, 7.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := map[string]any{"vote_average": tt.existing}
			candidate := fieldMap("vote_average", tt.incoming)

			res := Diff(existing, candidate, testDesc, Options{})

			if tt.changed {
				require.Len(t, res.Changes, 1)
			} else {
				assert.Empty(t, res.Changes)
			}
		})
	}
}

func TestDiff_NullAndEmptyEquivalence(t *testing.T) {
	tests := []struct {
		name     string
		existing any
		incoming any
		changed  bool
	}{
		{"nil existing, empty incoming", nil, "", false},
		{"empty existing, nil incoming", "", nil, false},
		{"nil existing, real incoming", nil, "fresh", true},
		{"empty existing, real incoming", "", "fresh", true},
		{"nil incoming nulls stored value", "stored", nil, true},
		{"whitespace incoming nulls stored value", "stored", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := map[string]any{"overview": tt.existing}
			candidate := fieldMap("overview", tt.incoming)

			res := Diff(existing, candidate, testDesc, Options{})

			if tt.changed {
				require.Len(t, res.Changes, 1)
			} else {
				assert.Empty(t, res.Changes)
			}
		})
	}
}

func TestDiff_EmptyCandidateNullsStoredValue(t *testing.T) {
	existing := map[string]any{"overview": "old synopsis"}
	candidate := fieldMap("overview", "")

	res := Diff(existing, candidate, testDesc, Options{})

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "old synopsis", res.Changes[0].Previous)
	assert.Nil(t, res.Changes[0].Current)

	applied, ok := res.Applied.Get("overview")
	require.True(t, ok, "nulled column must be written")
	assert.Nil(t, applied)
}

func TestDiff_UnparsableNumberComparedAsString(t *testing.T) {
	existing := map[string]any{"runtime": []byte("n/a")}

	res := Diff(existing, fieldMap("runtime", "n/a"), testDesc, Options{})
	assert.Empty(t, res.Changes, "identical unparsable values are equal")

	res = Diff(existing, fieldMap("runtime", "120"), testDesc, Options{})
	require.Len(t, res.Changes, 1)
	assert.Equal(t, int64(120), res.Changes[0].Current)
}

func TestDiff_NumericCoercion(t *testing.T) {
	// numeric columns scan as []byte from the driver
	existing := map[string]any{
		"vote_average": []byte("7.5"),
		"runtime":      []byte("142"),
	}
	candidate := fieldMap(
		"vote_average", 7.5,
		"runtime", "142",
	)

	res := Diff(existing, candidate, testDesc, Options{})
	assert.Empty(t, res.Changes)
}

func TestDiff_DateParsing(t *testing.T) {
	stored := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		incoming any
		changed  bool
		nulled   bool
	}{
		{"same date as string", "2024-05-01", false, false},
		{"different date", "2024-06-01", true, false},
		{"unparseable date nulls stored value", "not-a-date", true, true},
		{"empty date nulls stored value", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := map[string]any{"release_date": stored}
			candidate := fieldMap("release_date", tt.incoming)

			res := Diff(existing, candidate, testDesc, Options{})

			if !tt.changed {
				assert.Empty(t, res.Changes)
				return
			}
			require.Len(t, res.Changes, 1)
			if tt.nulled {
				assert.Nil(t, res.Changes[0].Current)
				return
			}
			current, ok := res.Changes[0].Current.(time.Time)
			require.True(t, ok)
			assert.Equal(t, 2024, current.Year())
		})
	}
}

func TestDiff_UnknownColumnsSkipped(t *testing.T) {
	existing := map[string]any{"movie_title": "Same"}
	candidate := fieldMap(
		"movie_title", "Same",
		"tagline", "not a known column",
	)

	res := Diff(existing, candidate, testDesc, Options{})

	assert.Empty(t, res.Changes)
	assert.Equal(t, []string{"tagline"}, res.Unknown)
}

func TestDiff_CandidateOrderPreserved(t *testing.T) {
	existing := map[string]any{}
	candidate := fieldMap(
		"vote_average", 8.1,
		"movie_title", "Ordered",
		"runtime", 99,
	)

	res := Diff(existing, candidate, testDesc, Options{})

	require.Len(t, res.Changes, 3)
	assert.Equal(t, "vote_average", res.Changes[0].Field)
	assert.Equal(t, "movie_title", res.Changes[1].Field)
	assert.Equal(t, "runtime", res.Changes[2].Field)
}

func TestDiff_TrimStrings(t *testing.T) {
	existing := map[string]any{"movie_title": "Same Title"}
	candidate := fieldMap("movie_title", "  Same Title  ")

	res := Diff(existing, candidate, testDesc, Options{TrimStrings: true})
	assert.Empty(t, res.Changes)
}

func TestDiff_RoundFloats(t *testing.T) {
	existing := map[string]any{"vote_average": 7.123}
	candidate := fieldMap("vote_average", 7.12345)

	res := Diff(existing, candidate, testDesc, Options{RoundFloats: 3})
	assert.Empty(t, res.Changes)
}

func TestInsertFields_DropsEmptyAndUnknown(t *testing.T) {
	candidate := fieldMap(
		"movie_title", "Fresh",
		"overview", "",
		"release_date", "2023-11-10",
		"tagline", "unknown",
		"runtime", nil,
	)

	fields := InsertFields(candidate, testDesc, Options{})

	assert.Equal(t, []string{"movie_title", "release_date"}, fields.Columns())
	date, ok := fields.Get("release_date")
	require.True(t, ok)
	_, isTime := date.(time.Time)
	assert.True(t, isTime)
}

func TestDiff_Idempotent(t *testing.T) {
	// a row written from a candidate must diff clean against that same candidate
	existing := map[string]any{
		"movie_title":  "Stable",
		"overview":     "unchanged overview",
		"release_date": time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		"runtime":      int64(101),
		"vote_average": []byte("6.8"),
	}
	candidate := fieldMap(
		"movie_title", "Stable",
		"overview", "unchanged overview",
		"release_date", "2020-01-15",
		"runtime", 101,
		"vote_average", 6.8,
	)

	res := Diff(existing, candidate, testDesc, Options{})
	assert.Empty(t, res.Changes)
	assert.Equal(t, 0, res.Applied.Len())
}
