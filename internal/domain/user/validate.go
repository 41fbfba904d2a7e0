package user

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength    = 8
	MaxDescriptionLength = 1000
)

var validate = validator.New()

// Registration is a trimmed and coerced CreateRequest that passed every check.
// Password is still plaintext here.
type Registration struct {
	FirstName          string
	LastName           string
	Age                int
	Subject            string
	DegreeType         string
	YearOfStudyCurrent int
	Email              string
	Description        string
	Password           string
}

// Normalize trims text fields, lower-cases the email, coerces the numeric
// fields and runs the checks in order. The first failing check wins.
func (r CreateRequest) Normalize() (Registration, error) {
	reg := Registration{
		FirstName:   strings.TrimSpace(r.FirstName.String()),
		LastName:    strings.TrimSpace(r.LastName.String()),
		Subject:     strings.TrimSpace(r.Subject.String()),
		DegreeType:  strings.TrimSpace(r.DegreeType.String()),
		Email:       strings.ToLower(strings.TrimSpace(r.Email.String())),
		Description: strings.TrimSpace(r.Description.String()),
		Password:    r.Password.String(),
	}

	required := []string{reg.FirstName, reg.LastName, reg.Subject, reg.DegreeType, reg.Email, reg.Description}
	for _, v := range required {
		if validate.Var(v, "required") != nil {
			return Registration{}, invalid(MsgMissingFields)
		}
	}

	age, ok := r.Age.Int()
	if !ok || validate.Var(age, "min=0") != nil {
		return Registration{}, invalid(MsgInvalidAge)
	}
	reg.Age = age

	year, ok := r.yearOfStudy().Int()
	if !ok || validate.Var(year, "min=1") != nil {
		return Registration{}, invalid(MsgInvalidYear)
	}
	reg.YearOfStudyCurrent = year

	if validate.Var(reg.Password, "min="+strconv.Itoa(MinPasswordLength)) != nil {
		return Registration{}, invalid(MsgPasswordTooShort)
	}

	if validate.Var(reg.Description, "max="+strconv.Itoa(MaxDescriptionLength)) != nil {
		return Registration{}, invalid(MsgDescriptionLong)
	}

	return reg, nil
}

func (r Registration) WithPasswordHash(hash string) NewUser {
	return NewUser{
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Age:                r.Age,
		Subject:            r.Subject,
		DegreeType:         r.DegreeType,
		YearOfStudyCurrent: r.YearOfStudyCurrent,
		Email:              r.Email,
		Description:        r.Description,
		PasswordHash:       hash,
	}
}
