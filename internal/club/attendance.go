package club

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"codingclub/internal/auth"
	"codingclub/internal/metrics"
)

const uniqueAttendanceMsg = "The fields meeting, student must make a unique set."

// BatchResult reports a completed batch recording.
type BatchResult struct {
	MeetingID uint
	Created   int
}

func invalidPKMsg(id any) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(id))
}

func (s *Service) ListAttendance(ctx context.Context, p auth.Principal) ([]Attendance, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx)
}

func (s *Service) GetAttendance(ctx context.Context, p auth.Principal, id uint) (*Attendance, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	return s.repo.AttendanceByID(ctx, id)
}

// CreateAttendance records a single row with p as the recorder.
func (s *Service) CreateAttendance(ctx context.Context, p auth.Principal, in AttendanceInput) (*Attendance, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	a := &Attendance{}
	if err := s.applyAttendance(ctx, a, in, true); err != nil {
		return nil, err
	}
	recorder := p.MemberID
	a.RecordedByID = &recorder
	if err := s.repo.CreateAttendance(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, FieldError("non_field_errors", uniqueAttendanceMsg)
		}
		return nil, err
	}
	return s.repo.AttendanceByID(ctx, a.ID)
}

func (s *Service) UpdateAttendance(ctx context.Context, p auth.Principal, id uint, in AttendanceInput, partial bool) (*Attendance, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	a, err := s.repo.AttendanceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyAttendance(ctx, a, in, !partial); err != nil {
		return nil, err
	}
	a.Student = nil
	if err := s.repo.UpdateAttendance(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, FieldError("non_field_errors", uniqueAttendanceMsg)
		}
		return nil, err
	}
	return s.repo.AttendanceByID(ctx, a.ID)
}

func (s *Service) DeleteAttendance(ctx context.Context, p auth.Principal, id uint) error {
	if err := requireTeacher(p); err != nil {
		return err
	}
	return s.repo.DeleteAttendance(ctx, id)
}

func (s *Service) applyAttendance(ctx context.Context, a *Attendance, in AttendanceInput, full bool) error {
	ve := &ValidationError{}
	if full && in.Meeting.Value == nil {
		ve.add("meeting", "This field is required.")
	}
	if full && in.Student.Value == nil {
		ve.add("student", "This field is required.")
	}
	if err := ve.orNil(); err != nil {
		return err
	}

	if in.Meeting.Set {
		id := in.Meeting.Or(0)
		ok, err := s.repo.MeetingExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			ve.add("meeting", invalidPKMsg(id))
		}
		a.MeetingID = id
	}
	if in.Student.Set {
		id := in.Student.Or(0)
		if _, err := s.repo.MemberByID(ctx, id); errors.Is(err, ErrNotFound) {
			ve.add("student", invalidPKMsg(id))
		} else if err != nil {
			return err
		}
		a.StudentID = id
	}
	if in.IsPresent.Set {
		a.IsPresent = in.IsPresent.Or(false)
	}
	if err := ve.orNil(); err != nil {
		return err
	}

	dup, err := s.repo.AttendancePairExists(ctx, a.MeetingID, a.StudentID, a.ID)
	if err != nil {
		return err
	}
	if dup {
		return FieldError("non_field_errors", uniqueAttendanceMsg)
	}
	return nil
}

// RecordBatch replaces a meeting's roster in one transaction. Unknown and
// non-student ids are skipped.
func (s *Service) RecordBatch(ctx context.Context, p auth.Principal, in BatchInput) (BatchResult, error) {
	if err := requireTeacher(p); err != nil {
		return BatchResult{}, err
	}
	meetingID, err := in.meetingID()
	if err != nil {
		return BatchResult{}, err
	}
	if in.Attendances == nil {
		return BatchResult{}, FieldError("attendances", "This field is required.")
	}
	n, err := s.repo.ReplaceAttendance(ctx, meetingID, in.Attendances, p.MemberID)
	if errors.Is(err, ErrNotFound) {
		return BatchResult{}, FieldError("meeting", invalidPKMsg(meetingID))
	}
	if err != nil {
		return BatchResult{}, err
	}
	metrics.AttendanceRecorded.Add(float64(n))
	s.log.Info("attendance recorded",
		zap.Uint("meeting_id", meetingID),
		zap.Int("submitted", len(in.Attendances)),
		zap.Int("created", n),
		zap.Uint("by", p.MemberID))
	return BatchResult{MeetingID: meetingID, Created: n}, nil
}

// MeetingAttendance returns the roster of the meeting named by a raw query
// value. A missing meeting yields ErrNotFound.
func (s *Service) MeetingAttendance(ctx context.Context, p auth.Principal, rawMeetingID string) ([]Attendance, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	rawMeetingID = strings.TrimSpace(rawMeetingID)
	if rawMeetingID == "" {
		return nil, Invalid("meeting_id is required")
	}
	id, err := strconv.ParseUint(rawMeetingID, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	ok, err := s.repo.MeetingExists(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.repo.AttendanceForMeeting(ctx, uint(id))
}
