package models

// PersonRef carries the lazily-created person dimension row. People are
// created on first sight and never diffed afterwards.
type PersonRef struct {
	ID                 int64
	Name               string
	Gender             *int
	ProfilePath        *string
	KnownForDepartment *string
	Popularity         *float64
}

func (c CastCredit) Person() PersonRef {
	return PersonRef{
		ID:                 c.PersonID,
		Name:               c.Name,
		Gender:             c.Gender,
		ProfilePath:        c.ProfilePath,
		KnownForDepartment: c.KnownForDepartment,
		Popularity:         c.Popularity,
	}
}

func (c CrewCredit) Person() PersonRef {
	return PersonRef{
		ID:                 c.PersonID,
		Name:               c.Name,
		Gender:             c.Gender,
		ProfilePath:        c.ProfilePath,
		KnownForDepartment: c.KnownForDepartment,
		Popularity:         c.Popularity,
	}
}
