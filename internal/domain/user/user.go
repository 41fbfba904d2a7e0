package user

// User is a stored registration. PasswordHash never leaves the process.
type User struct {
	ID                 int64  `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Age                int    `json:"age"`
	Subject            string `json:"subject"`
	DegreeType         string `json:"degree_type"`
	YearOfStudyCurrent int    `json:"year_of_study_current"`
	Email              string `json:"email"`
	Description        string `json:"description"`
	PasswordHash       string `json:"-"` // never expose hash in JSON
}

// NewUser is a normalized, validated registration ready to be persisted.
type NewUser struct {
	FirstName          string
	LastName           string
	Age                int
	Subject            string
	DegreeType         string
	YearOfStudyCurrent int
	Email              string
	Description        string
	PasswordHash       string
}

func (n NewUser) ToUser(id int64) User {
	return User{
		ID:                 id,
		FirstName:          n.FirstName,
		LastName:           n.LastName,
		Age:                n.Age,
		Subject:            n.Subject,
		DegreeType:         n.DegreeType,
		YearOfStudyCurrent: n.YearOfStudyCurrent,
		Email:              n.Email,
		Description:        n.Description,
		PasswordHash:       n.PasswordHash,
	}
}
