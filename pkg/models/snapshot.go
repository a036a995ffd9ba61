package models

import (
	"fmt"
	"strings"
)

// Upstream cast lists are truncated to the top billing entries before
// linking; anything past the cutoff is never stored.
const (
	MaxMovieCast  = 10
	MaxSeriesCast = 30
)

// GenreRef identifies a genre dimension row.
type GenreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CompanyRef identifies a production company dimension row.
type CompanyRef struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path,omitempty"`
	OriginCountry *string `json:"origin_country,omitempty"`
}

// LanguageRef identifies a spoken language by its ISO 639-1 code.
type LanguageRef struct {
	Code string `json:"iso_639_1"`
	Name string `json:"name"`
}

// CountryRef identifies a production country by its ISO 3166-1 code.
type CountryRef struct {
	Code string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// CollectionRef identifies the collection a movie belongs to.
type CollectionRef struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	PosterPath   *string `json:"poster_path,omitempty"`
	BackdropPath *string `json:"backdrop_path,omitempty"`
}

// CastCredit is one cast member on a title. EpisodeCount is only
// populated for series credits.
type CastCredit struct {
	PersonID           int64    `json:"id"`
	Name               string   `json:"name"`
	Gender             *int     `json:"gender,omitempty"`
	ProfilePath        *string  `json:"profile_path,omitempty"`
	KnownForDepartment *string  `json:"known_for_department,omitempty"`
	Popularity         *float64 `json:"popularity,omitempty"`
	Character          *string  `json:"character,omitempty"`
	Order              *int     `json:"order,omitempty"`
	EpisodeCount       *int     `json:"total_episode_count,omitempty"`
}

// CrewCredit is one crew member on a title, identified by person + job.
type CrewCredit struct {
	PersonID           int64    `json:"id"`
	Name               string   `json:"name"`
	Gender             *int     `json:"gender,omitempty"`
	ProfilePath        *string  `json:"profile_path,omitempty"`
	KnownForDepartment *string  `json:"known_for_department,omitempty"`
	Popularity         *float64 `json:"popularity,omitempty"`
	Department         *string  `json:"department,omitempty"`
	Job                string   `json:"job"`
}

// MovieSnapshot is the normalized upstream representation of a movie.
type MovieSnapshot struct {
	ID               int64    `json:"id" validate:"required"`
	Title            string   `json:"title"`
	Overview         *string  `json:"overview,omitempty"`
	ReleaseDate      *string  `json:"release_date,omitempty"`
	Runtime          *int     `json:"runtime,omitempty"`
	Popularity       *float64 `json:"popularity,omitempty"`
	VoteAverage      *float64 `json:"vote_average,omitempty"`
	VoteCount        *int     `json:"vote_count,omitempty"`
	PosterPath       *string  `json:"poster_path,omitempty"`
	BackdropPath     *string  `json:"backdrop_path,omitempty"`
	OriginalLanguage *string  `json:"original_language,omitempty"`
	Status           *string  `json:"status,omitempty"`
	Budget           *int64   `json:"budget,omitempty"`
	Revenue          *int64   `json:"revenue,omitempty"`

	Collection          *CollectionRef `json:"belongs_to_collection,omitempty"`
	Genres              []GenreRef     `json:"genres,omitempty"`
	ProductionCompanies []CompanyRef   `json:"production_companies,omitempty"`
	SpokenLanguages     []LanguageRef  `json:"spoken_languages,omitempty"`
	ProductionCountries []CountryRef   `json:"production_countries,omitempty"`
	Cast                []CastCredit   `json:"cast,omitempty"`
	Crew                []CrewCredit   `json:"crew,omitempty"`
}

// Normalize applies the upstream conventions before reconciliation:
// placeholder titles for unnamed entries and cast truncation.
func (m *MovieSnapshot) Normalize() {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = fmt.Sprintf("ID %d", m.ID)
	}
	if len(m.Cast) > MaxMovieCast {
		m.Cast = m.Cast[:MaxMovieCast]
	}
}

// SeasonSnapshot is one season embedded in a series snapshot.
type SeasonSnapshot struct {
	ID           int64   `json:"id"`
	SeasonNumber *int    `json:"season_number,omitempty"`
	Name         *string `json:"name,omitempty"`
	Overview     *string `json:"overview,omitempty"`
	AirDate      *string `json:"air_date,omitempty"`
	PosterPath   *string `json:"poster_path,omitempty"`
	EpisodeCount *int    `json:"episode_count,omitempty"`
}

// EpisodeSnapshot is one episode embedded in a series snapshot.
// Identity within a series is (season id, episode number); episode
// numbers repeat across seasons.
type EpisodeSnapshot struct {
	ID            int64    `json:"id"`
	SeasonID      *int64   `json:"season_id,omitempty"`
	EpisodeNumber *int     `json:"episode_number,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Overview      *string  `json:"overview,omitempty"`
	AirDate       *string  `json:"air_date,omitempty"`
	Runtime       *int     `json:"runtime,omitempty"`
	StillPath     *string  `json:"still_path,omitempty"`
	VoteAverage   *float64 `json:"vote_average,omitempty"`
	VoteCount     *int     `json:"vote_count,omitempty"`
}

// SeriesSnapshot is the normalized upstream representation of a series.
type SeriesSnapshot struct {
	ID               int64    `json:"id" validate:"required"`
	Name             string   `json:"name"`
	Overview         *string  `json:"overview,omitempty"`
	FirstAirDate     *string  `json:"first_air_date,omitempty"`
	LastAirDate      *string  `json:"last_air_date,omitempty"`
	NumberOfSeasons  *int     `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes *int     `json:"number_of_episodes,omitempty"`
	Popularity       *float64 `json:"popularity,omitempty"`
	VoteAverage      *float64 `json:"vote_average,omitempty"`
	VoteCount        *int     `json:"vote_count,omitempty"`
	PosterPath       *string  `json:"poster_path,omitempty"`
	BackdropPath     *string  `json:"backdrop_path,omitempty"`
	OriginalLanguage *string  `json:"original_language,omitempty"`
	Status           *string  `json:"status,omitempty"`
	Homepage         *string  `json:"homepage,omitempty"`
	IMDBID           *string  `json:"imdb_id,omitempty"`

	Genres              []GenreRef        `json:"genres,omitempty"`
	ProductionCompanies []CompanyRef      `json:"production_companies,omitempty"`
	SpokenLanguages     []LanguageRef     `json:"spoken_languages,omitempty"`
	ProductionCountries []CountryRef      `json:"production_countries,omitempty"`
	Cast                []CastCredit      `json:"cast,omitempty"`
	Crew                []CrewCredit      `json:"crew,omitempty"`
	Seasons             []SeasonSnapshot  `json:"seasons,omitempty"`
	Episodes            []EpisodeSnapshot `json:"episodes,omitempty"`
}

func (s *SeriesSnapshot) Normalize() {
	if strings.TrimSpace(s.Name) == "" {
		s.Name = fmt.Sprintf("ID %d", s.ID)
	}
	if len(s.Cast) > MaxSeriesCast {
		s.Cast = s.Cast[:MaxSeriesCast]
	}
}
