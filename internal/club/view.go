package club

import (
	"time"

	"codingclub/internal/auth"
)

// MemberView is the JSON representation of a member.
type MemberView struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Grade       *int      `json:"grade"`
	AccountType auth.Role `json:"account_type"`
	DateJoined  time.Time `json:"date_joined"`
}

// MeetingView is the JSON representation of a meeting. CreatedByName is null
// once the creator has been deleted.
type MeetingView struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Notes         string    `json:"notes"`
	Location      string    `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedBy     *uint     `json:"created_by"`
	CreatedByName *string   `json:"created_by_name"`
	AISummary     string    `json:"ai_summary"`
}

// AttendanceView is the JSON representation of an attendance row with the
// student's details flattened in.
type AttendanceView struct {
	ID           uint      `json:"id"`
	Meeting      uint      `json:"meeting"`
	Student      uint      `json:"student"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	StudentGrade *int      `json:"student_grade"`
	IsPresent    bool      `json:"is_present"`
	RecordedBy   *uint     `json:"recorded_by"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func NewMemberView(m *Member) MemberView {
	return MemberView{
		ID:          m.ID,
		Email:       m.Email,
		Username:    m.Username,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		FullName:    m.FullName(),
		Grade:       m.Grade,
		AccountType: m.AccountType,
		DateJoined:  m.DateJoined,
	}
}

func NewMemberViews(ms []Member) []MemberView {
	out := make([]MemberView, len(ms))
	for i := range ms {
		out[i] = NewMemberView(&ms[i])
	}
	return out
}

func NewMeetingView(m *Meeting) MeetingView {
	v := MeetingView{
		ID:          m.ID,
		Title:       m.Title,
		Date:        m.Date,
		Description: m.Description,
		Notes:       m.Notes,
		Location:    m.Location,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedByID,
		AISummary:   m.AISummary,
	}
	if m.CreatedBy != nil {
		name := m.CreatedBy.FullName()
		v.CreatedByName = &name
	}
	return v
}

func NewMeetingViews(ms []Meeting) []MeetingView {
	out := make([]MeetingView, len(ms))
	for i := range ms {
		out[i] = NewMeetingView(&ms[i])
	}
	return out
}

func NewAttendanceView(a *Attendance) AttendanceView {
	v := AttendanceView{
		ID:         a.ID,
		Meeting:    a.MeetingID,
		Student:    a.StudentID,
		IsPresent:  a.IsPresent,
		RecordedBy: a.RecordedByID,
		RecordedAt: a.RecordedAt,
	}
	if a.Student != nil {
		v.StudentName = a.Student.FullName()
		v.StudentEmail = a.Student.Email
		v.StudentGrade = a.Student.Grade
	}
	return v
}

func NewAttendanceViews(as []Attendance) []AttendanceView {
	out := make([]AttendanceView, len(as))
	for i := range as {
		out[i] = NewAttendanceView(&as[i])
	}
	return out
}
