package club

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"codingclub/internal/auth"
	"codingclub/internal/queue"
)

// Summarizer turns meeting text into a one-sentence summary. Summarize never
// fails; it degrades to a fallback sentence instead.
type Summarizer interface {
	Summarize(ctx context.Context, title, description, notes string) string
	Pending(title string) string
}

// Service implements the club operations on behalf of an explicit principal.
type Service struct {
	repo       *Repository
	summarizer Summarizer
	jobs       queue.Queue
	tokens     auth.Config
	log        *zap.Logger
}

// NewService wires the service. Summaries are computed inline until a job
// queue is attached with WithJobs.
func NewService(repo *Repository, summarizer Summarizer, tokens auth.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, summarizer: summarizer, tokens: tokens, log: log}
}

// WithJobs makes meeting writes publish summary jobs instead of calling the
// summarizer on the request path.
func (s *Service) WithJobs(q queue.Queue) *Service {
	s.jobs = q
	return s
}

func requireTeacher(p auth.Principal) error {
	if !p.Is(auth.RoleTeacher) {
		return ErrForbidden
	}
	return nil
}

// Principal resolves the current role of a member for the auth middleware.
func (s *Service) Principal(ctx context.Context, memberID uint) (auth.Principal, error) {
	m, err := s.repo.MemberByID(ctx, memberID)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{MemberID: m.ID, Role: m.AccountType}, nil
}

// Register creates an account and signs the new member in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (auth.TokenPair, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.AccountType == "" {
		return auth.TokenPair{}, Invalid("Email, password, and account type are required")
	}
	role := auth.Role(in.AccountType)
	if !role.Valid() {
		return auth.TokenPair{}, Invalid("Invalid account type")
	}
	if !validEmail(email) {
		return auth.TokenPair{}, Invalid("Enter a valid email address.")
	}
	if in.Grade.Invalid != "" {
		return auth.TokenPair{}, FieldError("grade", in.Grade.Invalid)
	}
	if err := check(memberFields{Email: email, AccountType: role, FirstName: in.FirstName, LastName: in.LastName}); err != nil {
		return auth.TokenPair{}, err
	}
	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if taken {
		return auth.TokenPair{}, Invalid("User with this email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return auth.TokenPair{}, err
	}
	m := &Member{
		Email:        email,
		PasswordHash: hash,
		AccountType:  role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Grade:        in.Grade.Value,
	}
	if err := s.repo.CreateMember(ctx, m); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return auth.TokenPair{}, Invalid("User with this email already exists")
		}
		return auth.TokenPair{}, err
	}
	s.log.Info("member registered", zap.Uint("member_id", m.ID), zap.String("account_type", role.String()))
	return s.issue(ctx, m)
}

// Login checks credentials and returns a fresh token pair with the member.
func (s *Service) Login(ctx context.Context, in Credentials) (auth.TokenPair, *Member, error) {
	m, err := s.authenticate(ctx, in)
	if err != nil {
		return auth.TokenPair{}, nil, err
	}
	pair, err := s.issue(ctx, m)
	if err != nil {
		return auth.TokenPair{}, nil, err
	}
	return pair, m, nil
}

func (s *Service) authenticate(ctx context.Context, in Credentials) (*Member, error) {
	if in.Email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}
	m, err := s.repo.MemberByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(m.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}

// Refresh exchanges a stored, live refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidRefresh
	}
	claims, err := auth.Parse(raw, s.tokens, auth.RefreshToken)
	if err != nil {
		return "", ErrInvalidRefresh
	}
	rt, err := s.repo.ActiveRefreshToken(ctx, auth.HashToken(raw))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", err
	}
	if id, err := claims.MemberID(); err != nil || id != rt.MemberID {
		return "", ErrInvalidRefresh
	}
	m, err := s.repo.MemberByID(ctx, rt.MemberID)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", err
	}
	access, _, err := auth.IssueAccess(s.tokens, m.ID, m.AccountType)
	return access, err
}

func (s *Service) issue(ctx context.Context, m *Member) (auth.TokenPair, error) {
	pair, err := auth.Issue(s.tokens, m.ID, m.AccountType)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if err := s.repo.SaveRefreshToken(ctx, m.ID, auth.HashToken(pair.RefreshToken), pair.RefreshExp); err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}
