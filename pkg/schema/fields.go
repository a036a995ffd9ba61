package schema

import "github.com/Ramsey-B/aster/pkg/models"

func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// MovieFields builds the candidate field map for a movie snapshot, in
// the column order the change log reports them.
func MovieFields(m *models.MovieSnapshot) *FieldMap {
	fm := &FieldMap{}
	fm.Set("movie_title", m.Title)
	fm.Set("overview", val(m.Overview))
	fm.Set("release_date", val(m.ReleaseDate))
	fm.Set("runtime", val(m.Runtime))
	fm.Set("popularity", val(m.Popularity))
	fm.Set("vote_average", val(m.VoteAverage))
	fm.Set("vote_count", val(m.VoteCount))
	fm.Set("poster_path", val(m.PosterPath))
	fm.Set("backdrop_path", val(m.BackdropPath))
	fm.Set("original_language", val(m.OriginalLanguage))
	fm.Set("status", val(m.Status))
	fm.Set("budget", val(m.Budget))
	fm.Set("revenue", val(m.Revenue))
	return fm
}

// SeriesFields builds the candidate field map for a series snapshot.
func SeriesFields(s *models.SeriesSnapshot) *FieldMap {
	fm := &FieldMap{}
	fm.Set("name", s.Name)
	fm.Set("overview", val(s.Overview))
	fm.Set("first_air_date", val(s.FirstAirDate))
	fm.Set("last_air_date", val(s.LastAirDate))
	fm.Set("number_of_seasons", val(s.NumberOfSeasons))
	fm.Set("number_of_episodes", val(s.NumberOfEpisodes))
	fm.Set("popularity", val(s.Popularity))
	fm.Set("vote_average", val(s.VoteAverage))
	fm.Set("vote_count", val(s.VoteCount))
	fm.Set("poster_path", val(s.PosterPath))
	fm.Set("backdrop_path", val(s.BackdropPath))
	fm.Set("original_language", val(s.OriginalLanguage))
	fm.Set("status", val(s.Status))
	fm.Set("homepage", val(s.Homepage))
	fm.Set("imdb_id", val(s.IMDBID))
	return fm
}

// SeasonFields builds the candidate field map for one season of a series.
func SeasonFields(seriesID int64, s models.SeasonSnapshot) *FieldMap {
	fm := &FieldMap{}
	fm.Set("series_id", seriesID)
	fm.Set("season_number", val(s.SeasonNumber))
	fm.Set("name", val(s.Name))
	fm.Set("overview", val(s.Overview))
	fm.Set("air_date", val(s.AirDate))
	fm.Set("poster_path", val(s.PosterPath))
	fm.Set("episode_count", val(s.EpisodeCount))
	return fm
}

// EpisodeFields builds the candidate field map for one episode of a series.
func EpisodeFields(seriesID int64, e models.EpisodeSnapshot) *FieldMap {
	fm := &FieldMap{}
	fm.Set("series_id", seriesID)
	fm.Set("season_id", val(e.SeasonID))
	fm.Set("episode_number", val(e.EpisodeNumber))
	fm.Set("name", val(e.Name))
	fm.Set("overview", val(e.Overview))
	fm.Set("air_date", val(e.AirDate))
	fm.Set("runtime", val(e.Runtime))
	fm.Set("still_path", val(e.StillPath))
	fm.Set("vote_average", val(e.VoteAverage))
	fm.Set("vote_count", val(e.VoteCount))
	return fm
}
