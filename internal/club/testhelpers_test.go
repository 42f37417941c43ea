package club

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"codingclub/internal/auth"
	"codingclub/internal/store"
)

var testTokens = auth.Config{
	Issuer:     "codingclub-test",
	SigningKey: "test-signing-key",
	AccessTTL:  time.Minute,
	RefreshTTL: time.Hour,
}

type stubSummarizer struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubSummarizer) Summarize(_ context.Context, title, description, notes string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, title+"|"+description+"|"+notes)
	return "Summary of " + title
}

func (s *stubSummarizer) Pending(title string) string {
	return "Meeting about " + title + ". (AI summary pending)"
}

func (s *stubSummarizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fixture struct {
	svc  *Service
	repo *Repository
	sum  *stubSummarizer
	db   *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

// newFileFixture uses an on-disk database so several connections can run
// transactions against it at once.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, filepath.Join(t.TempDir(), "club.db")+"?_busy_timeout=10000&_txlock=immediate")
}

func newFixtureAt(t *testing.T, dsn string) *fixture {
	t.Helper()
	db, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Gorm)
	require.NoError(t, repo.Migrate(context.Background()))
	sum := &stubSummarizer{}
	return &fixture{svc: NewService(repo, sum, testTokens, zap.NewNop()), repo: repo, sum: sum, db: db.Gorm}
}

func (f *fixture) member(t *testing.T, email string, role auth.Role) (*Member, auth.Principal) {
	t.Helper()
	hash, err := auth.HashPassword("pw-" + email)
	require.NoError(t, err)
	m := &Member{Email: email, PasswordHash: hash, AccountType: role, FirstName: "F", LastName: "L"}
	require.NoError(t, f.repo.CreateMember(context.Background(), m))
	return m, auth.Principal{MemberID: m.ID, Role: role}
}

func (f *fixture) meeting(t *testing.T, p auth.Principal, title string, day int) *Meeting {
	t.Helper()
	m, err := f.svc.CreateMeeting(context.Background(), p, MeetingInput{
		Title:    Some(title),
		Date:     Some(time.Date(2024, time.March, day, 15, 0, 0, 0, time.UTC)),
		Location: Some("Room 101"),
	})
	require.NoError(t, err)
	return m
}

func roster(t *testing.T, f *fixture, meetingID uint) map[uint]bool {
	t.Helper()
	rows, err := f.repo.AttendanceForMeeting(context.Background(), meetingID)
	require.NoError(t, err)
	out := make(map[uint]bool, len(rows))
	for _, a := range rows {
		out[a.StudentID] = a.IsPresent
	}
	return out
}
