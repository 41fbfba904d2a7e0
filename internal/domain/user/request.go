package user

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// CreateRequest is the wire shape of POST /users.
type CreateRequest struct {
	FirstName          Text    `json:"first_name"`
	LastName           Text    `json:"last_name"`
	Age                Integer `json:"age"`
	Subject            Text    `json:"subject"`
	DegreeType         Text    `json:"degree_type"`
	YearOfStudyCurrent Integer `json:"year_of_study_current"`
	// accepted from older clients that still send the misspelled key
	LegacyYearOfStudy Integer `json:"year_of_study_currunt"`
	Email             Text    `json:"email"`
	Description       Text    `json:"description"`
	Password          Text    `json:"password"`
}

// Text accepts any JSON scalar as a string. Numbers keep their decimal
// form and true becomes "true"; null, false and zero read as empty, so the
// required-field and length checks decide about them. Objects and arrays
// are not text and fail decoding.
type Text struct {
	value string
}

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 {
		t.value = ""
		return nil
	}

	switch raw[0] {
	case '"':
		return json.Unmarshal(raw, &t.value)
	case 'n', 'f':
		t.value = ""
		return nil
	case 't':
		t.value = "true"
		return nil
	case '{', '[':
		return &json.UnmarshalTypeError{Value: "object or array", Type: reflect.TypeOf("")}
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return err
	}

	switch {
	case f == 0:
		t.value = ""
	case math.Abs(f) < 1e21:
		t.value = strconv.FormatFloat(f, 'f', -1, 64)
	default:
		t.value = string(raw)
	}
	return nil
}

func (t Text) String() string {
	return t.value
}

// Integer keeps the raw JSON token so coercion and its failure can be
// reported in validation order rather than at decode time.
type Integer struct {
	raw json.RawMessage
}

func (i *Integer) UnmarshalJSON(b []byte) error {
	i.raw = append(i.raw[:0], b...)
	return nil
}

// Present reports whether the field was sent with a non-null value.
func (i Integer) Present() bool {
	raw := bytes.TrimSpace(i.raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// Int coerces a JSON number or numeric string holding an integral value.
func (i Integer) Int() (int, bool) {
	raw := bytes.TrimSpace(i.raw)
	if len(raw) == 0 {
		return 0, false
	}

	var text string

	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	case 'n', 't', 'f', '{', '[':
		return 0, false
	default:
		text = string(raw)
	}

	if text == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}

	return int(f), true
}

func (r CreateRequest) yearOfStudy() Integer {
	if r.YearOfStudyCurrent.Present() {
		return r.YearOfStudyCurrent
	}
	return r.LegacyYearOfStudy
}
