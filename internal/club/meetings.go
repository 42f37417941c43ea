package club

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"codingclub/internal/auth"
	"codingclub/internal/metrics"
	"codingclub/internal/queue"
)

func (s *Service) ListMeetings(ctx context.Context, _ auth.Principal) ([]Meeting, error) {
	return s.repo.ListMeetings(ctx)
}

func (s *Service) GetMeeting(ctx context.Context, _ auth.Principal, id uint) (*Meeting, error) {
	return s.repo.MeetingByID(ctx, id)
}

// CreateMeeting stores a meeting created by p along with its summary.
func (s *Service) CreateMeeting(ctx context.Context, p auth.Principal, in MeetingInput) (*Meeting, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	m := &Meeting{}
	if err := applyMeeting(m, in, true); err != nil {
		return nil, err
	}
	creator := p.MemberID
	m.CreatedByID = &creator

	async := s.jobs != nil
	if async {
		m.AISummary = s.summarizer.Pending(m.Title)
	} else {
		m.AISummary = s.summarizer.Summarize(ctx, m.Title, m.Description, m.Notes)
	}
	if err := s.repo.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}
	if async {
		s.enqueueSummary(ctx, m)
	}
	return s.repo.MeetingByID(ctx, m.ID)
}

// UpdateMeeting replaces (partial=false) or patches a meeting and recomputes
// its summary.
func (s *Service) UpdateMeeting(ctx context.Context, p auth.Principal, id uint, in MeetingInput, partial bool) (*Meeting, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	m, err := s.repo.MeetingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyMeeting(m, in, !partial); err != nil {
		return nil, err
	}

	async := s.jobs != nil
	if async {
		m.AISummary = s.summarizer.Pending(m.Title)
	} else {
		m.AISummary = s.summarizer.Summarize(ctx, m.Title, m.Description, m.Notes)
	}
	if err := s.repo.UpdateMeeting(ctx, m); err != nil {
		return nil, err
	}
	if async {
		s.enqueueSummary(ctx, m)
	}
	return s.repo.MeetingByID(ctx, m.ID)
}

func (s *Service) DeleteMeeting(ctx context.Context, p auth.Principal, id uint) error {
	if err := requireTeacher(p); err != nil {
		return err
	}
	return s.repo.DeleteMeeting(ctx, id)
}

// RefreshSummary recomputes and stores the summary of a meeting. The worker
// calls it for queued jobs.
func (s *Service) RefreshSummary(ctx context.Context, id uint) error {
	m, err := s.repo.MeetingByID(ctx, id)
	if err != nil {
		return err
	}
	summary := s.summarizer.Summarize(ctx, m.Title, m.Description, m.Notes)
	return s.repo.SetMeetingSummary(ctx, id, summary)
}

// enqueueSummary publishes a summary job, computing the summary inline when
// the queue is unavailable so the meeting never keeps the placeholder.
func (s *Service) enqueueSummary(ctx context.Context, m *Meeting) {
	msg := queue.Message{Type: queue.TypeSummarize, Body: []byte(strconv.FormatUint(uint64(m.ID), 10))}
	err := s.jobs.Publish(ctx, msg)
	if err == nil {
		metrics.QueueMessages.WithLabelValues(queue.TypeSummarize, "published").Inc()
		return
	}
	metrics.QueueMessages.WithLabelValues(queue.TypeSummarize, "publish_failed").Inc()
	s.log.Warn("summary enqueue failed, summarizing inline", zap.Uint("meeting_id", m.ID), zap.Error(err))
	if err := s.RefreshSummary(ctx, m.ID); err != nil {
		s.log.Error("inline summary failed", zap.Uint("meeting_id", m.ID), zap.Error(err))
	}
}

// applyMeeting merges in onto m and validates the result. With full set,
// title, date and location must be present in the input.
func applyMeeting(m *Meeting, in MeetingInput, full bool) error {
	ve := &ValidationError{}
	in.Date.report(ve, "date")
	if err := ve.orNil(); err != nil {
		return err
	}
	if full {
		if in.Title.Value == nil {
			ve.add("title", "This field is required.")
		}
		if in.Date.Value == nil {
			ve.add("date", "This field is required.")
		}
		if in.Location.Value == nil {
			ve.add("location", "This field is required.")
		}
		if err := ve.orNil(); err != nil {
			return err
		}
	}
	if in.Title.Set {
		m.Title = strings.TrimSpace(in.Title.Or(""))
	}
	if in.Date.Set {
		m.Date = in.Date.Or(m.Date)
		if in.Date.Value == nil {
			return FieldError("date", "This field may not be null.")
		}
	}
	if in.Description.Set {
		m.Description = in.Description.Or("")
	}
	if in.Notes.Set {
		m.Notes = in.Notes.Or("")
	}
	if in.Location.Set {
		m.Location = strings.TrimSpace(in.Location.Or(""))
	}
	return check(meetingFields{Title: m.Title, Date: m.Date, Location: m.Location})
}
