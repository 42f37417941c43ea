package club

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	msgBadDateTime = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	msgBadInteger  = "A valid integer is required."
)

// Optional is a JSON field that distinguishes "absent" from "null" so partial
// updates only touch what the client sent. Dates and integers are decoded
// leniently; a value of the wrong shape leaves Value nil and sets Invalid to
// the message reported for the field.
type Optional[T any] struct {
	Set     bool
	Value   *T
	Invalid string
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value, o.Invalid = nil, ""
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v T
	switch p := any(&v).(type) {
	case *time.Time:
		t, ok := parseDateTime(b)
		if !ok {
			o.Invalid = msgBadDateTime
			return nil
		}
		*p = t
	case *int:
		n, ok := parseInt(b)
		if !ok {
			o.Invalid = msgBadInteger
			return nil
		}
		*p = n
	default:
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
	}
	o.Value = &v
	return nil
}

// report adds the decode failure of o, if any, to ve under field.
func (o Optional[T]) report(ve *ValidationError, field string) {
	if o.Invalid != "" {
		ve.add(field, o.Invalid)
	}
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Or returns the value or def when absent or null.
func (o Optional[T]) Or(def T) T {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

type RegisterInput struct {
	Email       string        `json:"email"`
	Password    string        `json:"password"`
	AccountType string        `json:"account_type"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Grade       Optional[int] `json:"grade"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MemberInput is the writable member shape for create, update and partial update.
type MemberInput struct {
	Email       Optional[string] `json:"email"`
	Password    Optional[string] `json:"password"`
	AccountType Optional[string] `json:"account_type"`
	FirstName   Optional[string] `json:"first_name"`
	LastName    Optional[string] `json:"last_name"`
	Grade       Optional[int]    `json:"grade"`
}

type MeetingInput struct {
	Title       Optional[string]    `json:"title"`
	Date        Optional[time.Time] `json:"date"`
	Description Optional[string]    `json:"description"`
	Notes       Optional[string]    `json:"notes"`
	Location    Optional[string]    `json:"location"`
}

type AttendanceInput struct {
	Meeting   Optional[uint] `json:"meeting"`
	Student   Optional[uint] `json:"student"`
	IsPresent Optional[bool] `json:"is_present"`
}

// BatchInput replaces the roster of Meeting with Attendances.
type BatchInput struct {
	Meeting     json.RawMessage `json:"meeting"`
	Attendances []BatchEntry    `json:"attendances"`
}

// UnmarshalJSON accepts student_id as a number or a numeric string. Anything
// else leaves StudentID zero so the entry is skipped.
func (e *BatchEntry) UnmarshalJSON(b []byte) error {
	var raw struct {
		StudentID json.RawMessage `json:"student_id"`
		IsPresent any             `json:"is_present"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	e.StudentID = 0
	if id, ok := parsePK(raw.StudentID); ok {
		e.StudentID = id
	}
	e.IsPresent = truthy(raw.IsPresent)
	return nil
}

// parsePK reads a positive integer id given as a JSON number or string.
func parsePK(raw json.RawMessage) (uint, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func pkLabel(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true
		}
	}
	return false
}

// dateTimeLayouts are the accepted meeting date forms. Values without a zone
// are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDateTime(raw []byte) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseInt reads an integer given as a JSON number or a numeric string.
// Integral decimals such as 10.0 are accepted.
func parseInt(raw []byte) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// meetingID resolves the meeting reference of a batch request.
func (in BatchInput) meetingID() (uint, error) {
	if len(in.Meeting) == 0 || strings.TrimSpace(string(in.Meeting)) == "null" {
		return 0, FieldError("meeting", "This field is required.")
	}
	id, ok := parsePK(in.Meeting)
	if !ok {
		return 0, FieldError("meeting", invalidPKMsg(pkLabel(in.Meeting)))
	}
	return id, nil
}
