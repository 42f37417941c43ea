package club

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"codingclub/internal/auth"
)

func (s *Service) ListMembers(ctx context.Context, _ auth.Principal) ([]Member, error) {
	return s.repo.ListMembers(ctx, "")
}

func (s *Service) GetMember(ctx context.Context, _ auth.Principal, id uint) (*Member, error) {
	return s.repo.MemberByID(ctx, id)
}

// CurrentUser returns the caller's own record.
func (s *Service) CurrentUser(ctx context.Context, p auth.Principal) (*Member, error) {
	return s.repo.MemberByID(ctx, p.MemberID)
}

// Students lists student accounts for teachers taking attendance.
func (s *Service) Students(ctx context.Context, p auth.Principal) ([]Member, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, auth.RoleStudent)
}

// CreateMember adds an account on a teacher's behalf. Without a password the
// account cannot log in until one is set.
func (s *Service) CreateMember(ctx context.Context, p auth.Principal, in MemberInput) (*Member, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	m := &Member{AccountType: auth.RoleStudent}
	if err := s.applyMember(ctx, m, in, true); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMember(ctx, m); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, FieldError("email", "member with this email already exists.")
		}
		return nil, err
	}
	s.log.Info("member created", zap.Uint("member_id", m.ID), zap.Uint("by", p.MemberID))
	return m, nil
}

// UpdateMember replaces (partial=false) or patches a member.
func (s *Service) UpdateMember(ctx context.Context, p auth.Principal, id uint, in MemberInput, partial bool) (*Member, error) {
	if err := requireTeacher(p); err != nil {
		return nil, err
	}
	m, err := s.repo.MemberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyMember(ctx, m, in, !partial); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMember(ctx, m); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, FieldError("email", "member with this email already exists.")
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteMember(ctx context.Context, p auth.Principal, id uint) error {
	if err := requireTeacher(p); err != nil {
		return err
	}
	if err := s.repo.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.log.Info("member deleted", zap.Uint("member_id", id), zap.Uint("by", p.MemberID))
	return nil
}

// applyMember merges in onto m and validates the result. With full set, the
// required fields must be present in the input.
func (s *Service) applyMember(ctx context.Context, m *Member, in MemberInput, full bool) error {
	ve := &ValidationError{}
	in.Grade.report(ve, "grade")
	if full && in.Email.Value == nil {
		ve.add("email", "This field is required.")
	}
	oldEmail := m.Email
	if in.Email.Set {
		m.Email = normalizeEmail(in.Email.Or(""))
	}
	if in.AccountType.Set {
		m.AccountType = auth.Role(in.AccountType.Or(""))
	}
	if in.FirstName.Set {
		m.FirstName = strings.TrimSpace(in.FirstName.Or(""))
	}
	if in.LastName.Set {
		m.LastName = strings.TrimSpace(in.LastName.Or(""))
	}
	if in.Grade.Set {
		m.Grade = in.Grade.Value
	}
	if err := ve.orNil(); err != nil {
		return err
	}
	if err := check(memberFields{Email: m.Email, AccountType: m.AccountType, FirstName: m.FirstName, LastName: m.LastName}); err != nil {
		return err
	}
	if m.Email != oldEmail {
		taken, err := s.repo.EmailExists(ctx, m.Email)
		if err != nil {
			return err
		}
		if taken {
			return FieldError("email", "member with this email already exists.")
		}
	}
	if pw := in.Password.Or(""); pw != "" {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		m.PasswordHash = hash
	}
	return nil
}
