package club

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codingclub/internal/auth"
	"codingclub/internal/queue"
)

func detail(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	return ve.Detail
}

func fields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	return ve.Fields
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "x", AccountType: "teacher"})
	require.NoError(t, err)

	for _, in := range []RegisterInput{
		{Email: "a@b.com", Password: "x", AccountType: "teacher"},
		{Email: "a@b.com", Password: "other", AccountType: "student", FirstName: "Zed"},
		{Email: "a@B.COM", Password: "x", AccountType: "student"},
	} {
		_, err := f.svc.Register(ctx, in)
		assert.Equal(t, "User with this email already exists", detail(t, err), in.Email)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		in   RegisterInput
		want string
	}{
		{RegisterInput{Password: "x", AccountType: "teacher"}, "Email, password, and account type are required"},
		{RegisterInput{Email: "a@b.com", AccountType: "teacher"}, "Email, password, and account type are required"},
		{RegisterInput{Email: "a@b.com", Password: "x"}, "Email, password, and account type are required"},
		{RegisterInput{Email: "a@b.com", Password: "x", AccountType: "admin"}, "Invalid account type"},
		{RegisterInput{Email: "not-an-email", Password: "x", AccountType: "student"}, "Enter a valid email address."},
	}
	for _, tt := range tests {
		_, err := f.svc.Register(ctx, tt.in)
		assert.Equal(t, tt.want, detail(t, err))
	}

	_, err := f.svc.Register(ctx, RegisterInput{Email: "long@b.com", Password: "x", AccountType: "student", FirstName: "abcdefghijklmnopqrstuvwxyz012345"})
	assert.Equal(t, []string{"Ensure this field has no more than 30 characters."}, fields(t, err)["first_name"])
}

func TestRegisterIssuesUsableTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Register(ctx, RegisterInput{Email: "kim@club.org", Password: "secret", AccountType: "student", Grade: Some(10)})
	require.NoError(t, err)

	claims, err := auth.Parse(pair.AccessToken, testTokens, auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStudent, claims.Role)

	access, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
}

func TestUsernameDerivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got []string
	for i, domain := range []string{"a.com", "b.com", "c.com", "d.com"} {
		_, err := f.svc.Register(ctx, RegisterInput{Email: "alex@" + domain, Password: "x", AccountType: "student"})
		require.NoError(t, err, i)
		m, err := f.repo.MemberByEmail(ctx, "alex@"+domain)
		require.NoError(t, err)
		got = append(got, m.Username)
	}
	assert.Equal(t, []string{"alex", "alex1", "alex2", "alex3"}, got)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterInput{Email: "Sam@Club.org", Password: "right", AccountType: "teacher", FirstName: "Sam"})
	require.NoError(t, err)

	pair, m, err := f.svc.Login(ctx, Credentials{Email: "Sam@club.org", Password: "right"})
	require.NoError(t, err)
	assert.Equal(t, "Sam@club.org", m.Email)
	assert.NotEmpty(t, pair.AccessToken)

	for _, c := range []Credentials{
		{Email: "Sam@club.org", Password: "wrong"},
		{Email: "nobody@club.org", Password: "right"},
		{Email: "", Password: ""},
	} {
		_, _, err := f.svc.Login(ctx, c)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestMemberWithoutPasswordCannotLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	_, err := f.svc.CreateMember(ctx, teacher, MemberInput{Email: Some("nopw@club.org")})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, Credentials{Email: "nopw@club.org", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair, err := f.svc.Register(ctx, RegisterInput{Email: "r@club.org", Password: "x", AccountType: "student"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "access token is not a refresh token")

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	unstored, err := auth.Issue(testTokens, 1, auth.RoleStudent)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, unstored.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "signed but never issued by the service")

	m, err := f.repo.MemberByEmail(ctx, "r@club.org")
	require.NoError(t, err)
	require.NoError(t, f.repo.RevokeRefreshTokens(ctx, m.ID))
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestPrincipalReflectsCurrentRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, _ := f.member(t, "s@club.org", auth.RoleStudent)

	_, err := f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{AccountType: Some("teacher")}, true)
	require.NoError(t, err)

	p, err := f.svc.Principal(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, p.Role)

	_, err = f.svc.Principal(ctx, m.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentsCannotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, student := f.member(t, "s@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "Intro", 1)

	checks := map[string]error{}
	_, checks["create meeting"] = f.svc.CreateMeeting(ctx, student, MeetingInput{Title: Some("x")})
	_, checks["update meeting"] = f.svc.UpdateMeeting(ctx, student, mt.ID, MeetingInput{}, true)
	checks["delete meeting"] = f.svc.DeleteMeeting(ctx, student, mt.ID)
	_, checks["create member"] = f.svc.CreateMember(ctx, student, MemberInput{Email: Some("x@y.z")})
	_, checks["update member"] = f.svc.UpdateMember(ctx, student, s.ID, MemberInput{}, true)
	checks["delete member"] = f.svc.DeleteMember(ctx, student, s.ID)
	_, checks["list attendance"] = f.svc.ListAttendance(ctx, student)
	_, checks["create attendance"] = f.svc.CreateAttendance(ctx, student, AttendanceInput{})
	_, checks["record batch"] = f.svc.RecordBatch(ctx, student, BatchInput{})
	_, checks["meeting attendance"] = f.svc.MeetingAttendance(ctx, student, "1")
	_, checks["students"] = f.svc.Students(ctx, student)

	for name, err := range checks {
		assert.ErrorIs(t, err, ErrForbidden, name)
	}

	meetings, err := f.svc.ListMeetings(ctx, student)
	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestMeetingSummaryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	m := f.meeting(t, teacher, "Intro to Go", 1)
	assert.Equal(t, "Summary of Intro to Go", m.AISummary)
	require.NotNil(t, m.CreatedByID)
	assert.Equal(t, author.ID, *m.CreatedByID)
	name := NewMeetingView(m).CreatedByName
	require.NotNil(t, name)
	assert.Equal(t, "F L", *name)

	updated, err := f.svc.UpdateMeeting(ctx, teacher, m.ID, MeetingInput{Title: Some("Go Generics"), Notes: Some("type params")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Summary of Go Generics", updated.AISummary)
	assert.Equal(t, "Room 101", updated.Location)
	assert.Equal(t, 2, f.sum.count())
	assert.Equal(t, "Go Generics||type params", f.sum.calls[1])
}

func TestMeetingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	_, err := f.svc.CreateMeeting(ctx, teacher, MeetingInput{Title: Some("Only a title")})
	fe := fields(t, err)
	assert.Equal(t, []string{"This field is required."}, fe["date"])
	assert.Equal(t, []string{"This field is required."}, fe["location"])
	assert.NotContains(t, fe, "title")

	m := f.meeting(t, teacher, "Valid", 2)
	_, err = f.svc.UpdateMeeting(ctx, teacher, m.ID, MeetingInput{Title: Some("")}, true)
	assert.Equal(t, []string{"This field is required."}, fields(t, err)["title"])

	_, err = f.svc.UpdateMeeting(ctx, teacher, m.ID+50, MeetingInput{}, true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.sum.count(), "failed updates never reach the summarizer")
}

func TestMeetingsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	for _, day := range []int{3, 9, 1} {
		f.meeting(t, teacher, fmt.Sprintf("day %d", day), day)
	}

	ms, err := f.svc.ListMeetings(ctx, teacher)
	require.NoError(t, err)
	var titles []string
	for _, m := range ms {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"day 9", "day 3", "day 1"}, titles)
}

func TestRecordBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	other, _ := f.member(t, "t2@club.org", auth.RoleTeacher)
	s1, _ := f.member(t, "s1@club.org", auth.RoleStudent)
	s2, _ := f.member(t, "s2@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "Roster", 4)

	in := BatchInput{
		Meeting: []byte(fmt.Sprint(mt.ID)),
		Attendances: []BatchEntry{
			{StudentID: s1.ID, IsPresent: true},
			{StudentID: s2.ID, IsPresent: true},
			{StudentID: 9999, IsPresent: true},
			{StudentID: other.ID, IsPresent: true},
			{StudentID: s1.ID, IsPresent: false},
		},
	}
	res, err := f.svc.RecordBatch(ctx, teacher, in)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{MeetingID: mt.ID, Created: 2}, res)
	want := map[uint]bool{s1.ID: false, s2.ID: true}
	assert.Equal(t, want, roster(t, f, mt.ID))

	res, err = f.svc.RecordBatch(ctx, teacher, in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, want, roster(t, f, mt.ID), "repeating a batch yields the same roster")

	rows, err := f.repo.AttendanceForMeeting(ctx, mt.ID)
	require.NoError(t, err)
	for _, a := range rows {
		require.NotNil(t, a.RecordedByID)
		assert.Equal(t, teacher.MemberID, *a.RecordedByID)
	}

	res, err = f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: in.Meeting, Attendances: []BatchEntry{}})
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Empty(t, roster(t, f, mt.ID))
}

func TestRecordBatchBadMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	_, err := f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: []byte("42"), Attendances: []BatchEntry{}})
	assert.Equal(t, []string{`Invalid pk "42" - object does not exist.`}, fields(t, err)["meeting"])

	_, err = f.svc.RecordBatch(ctx, teacher, BatchInput{Attendances: []BatchEntry{}})
	assert.Equal(t, []string{"This field is required."}, fields(t, err)["meeting"])

	_, err = f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: []byte(`"abc"`), Attendances: []BatchEntry{}})
	assert.Equal(t, []string{`Invalid pk "abc" - object does not exist.`}, fields(t, err)["meeting"])
}

func TestRecordBatchRequiresAttendances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	mt := f.meeting(t, teacher, "x", 1)

	_, err := f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: []byte(fmt.Sprint(mt.ID))})
	assert.Equal(t, []string{"This field is required."}, fields(t, err)["attendances"])
}

func TestMeetingAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, _ := f.member(t, "s@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "x", 1)
	_, err := f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: []byte(fmt.Sprint(mt.ID)), Attendances: []BatchEntry{{StudentID: s.ID, IsPresent: true}}})
	require.NoError(t, err)

	rows, err := f.svc.MeetingAttendance(ctx, teacher, fmt.Sprint(mt.ID))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s@club.org", NewAttendanceView(&rows[0]).StudentEmail)

	_, err = f.svc.MeetingAttendance(ctx, teacher, "")
	assert.Equal(t, "meeting_id is required", detail(t, err))
	_, err = f.svc.MeetingAttendance(ctx, teacher, "777")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.MeetingAttendance(ctx, teacher, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttendanceCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, _ := f.member(t, "s@club.org", auth.RoleStudent)
	s2, _ := f.member(t, "s2@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "x", 1)

	a, err := f.svc.CreateAttendance(ctx, teacher, AttendanceInput{Meeting: Some(mt.ID), Student: Some(s.ID), IsPresent: Some(true)})
	require.NoError(t, err)
	assert.True(t, a.IsPresent)
	require.NotNil(t, a.RecordedByID)
	assert.Equal(t, teacher.MemberID, *a.RecordedByID)

	_, err = f.svc.CreateAttendance(ctx, teacher, AttendanceInput{Meeting: Some(mt.ID), Student: Some(s.ID)})
	assert.Equal(t, []string{uniqueAttendanceMsg}, fields(t, err)["non_field_errors"])

	_, err = f.svc.CreateAttendance(ctx, teacher, AttendanceInput{Meeting: Some(mt.ID + 9), Student: Some(s.ID)})
	assert.Equal(t, []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", mt.ID+9)}, fields(t, err)["meeting"])

	_, err = f.svc.CreateAttendance(ctx, teacher, AttendanceInput{})
	assert.Len(t, fields(t, err), 2)

	b, err := f.svc.CreateAttendance(ctx, teacher, AttendanceInput{Meeting: Some(mt.ID), Student: Some(s2.ID)})
	require.NoError(t, err)
	assert.False(t, b.IsPresent)

	_, err = f.svc.UpdateAttendance(ctx, teacher, b.ID, AttendanceInput{Student: Some(s.ID)}, true)
	assert.Equal(t, []string{uniqueAttendanceMsg}, fields(t, err)["non_field_errors"])

	b, err = f.svc.UpdateAttendance(ctx, teacher, b.ID, AttendanceInput{IsPresent: Some(true)}, true)
	require.NoError(t, err)
	assert.True(t, b.IsPresent)

	_, err = f.svc.UpdateAttendance(ctx, teacher, b.ID, AttendanceInput{IsPresent: Some(true)}, false)
	assert.Len(t, fields(t, err), 2, "PUT needs meeting and student")

	require.NoError(t, f.svc.DeleteAttendance(ctx, teacher, a.ID))
	assert.ErrorIs(t, f.svc.DeleteAttendance(ctx, teacher, a.ID), ErrNotFound)

	all, err := f.svc.ListAttendance(ctx, teacher)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemberUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, _ := f.member(t, "s@club.org", auth.RoleStudent)

	_, err := f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{Email: Some("t@club.org")}, true)
	assert.Equal(t, []string{"member with this email already exists."}, fields(t, err)["email"])

	_, err = f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{FirstName: Some("Only")}, false)
	assert.Equal(t, []string{"This field is required."}, fields(t, err)["email"])

	_, err = f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{AccountType: Some("janitor")}, true)
	assert.Equal(t, []string{`"janitor" is not a valid choice.`}, fields(t, err)["account_type"])

	m, err := f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{Grade: Some(11), LastName: Some("Lovelace")}, true)
	require.NoError(t, err)
	require.NotNil(t, m.Grade)
	assert.Equal(t, 11, *m.Grade)

	m, err = f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{Grade: Optional[int]{Set: true}}, true)
	require.NoError(t, err)
	assert.Nil(t, m.Grade, "explicit null clears the grade")
	assert.Equal(t, "Lovelace", m.LastName)

	_, err = f.svc.UpdateMember(ctx, teacher, s.ID, MemberInput{Email: Some("new@club.org"), Password: Some("fresh")}, false)
	require.NoError(t, err)
	_, _, err = f.svc.Login(ctx, Credentials{Email: "new@club.org", Password: "fresh"})
	assert.NoError(t, err)
}

func TestStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	f.member(t, "s1@club.org", auth.RoleStudent)
	f.member(t, "s2@club.org", auth.RoleStudent)

	students, err := f.svc.Students(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, students, 2)
	for _, s := range students {
		assert.Equal(t, auth.RoleStudent, s.AccountType)
	}

	all, err := f.svc.ListMembers(ctx, teacher)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteMemberCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	_, admin := f.member(t, "admin@club.org", auth.RoleTeacher)
	s1, _ := f.member(t, "s1@club.org", auth.RoleStudent)
	s2, _ := f.member(t, "s2@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "x", 1)
	_, err := f.svc.RecordBatch(ctx, teacher, BatchInput{
		Meeting:     []byte(fmt.Sprint(mt.ID)),
		Attendances: []BatchEntry{{StudentID: s1.ID, IsPresent: true}, {StudentID: s2.ID}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMember(ctx, admin, s1.ID))
	assert.Equal(t, map[uint]bool{s2.ID: false}, roster(t, f, mt.ID))

	require.NoError(t, f.svc.DeleteMember(ctx, admin, tm.ID))
	got, err := f.repo.MeetingByID(ctx, mt.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CreatedByID)
	assert.Nil(t, NewMeetingView(got).CreatedByName)

	rows, err := f.repo.AttendanceForMeeting(ctx, mt.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].RecordedByID)

	assert.ErrorIs(t, f.svc.DeleteMember(ctx, admin, tm.ID), ErrNotFound)
}

func TestDeleteMeetingCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	s, _ := f.member(t, "s@club.org", auth.RoleStudent)
	mt := f.meeting(t, teacher, "x", 1)
	_, err := f.svc.RecordBatch(ctx, teacher, BatchInput{Meeting: []byte(fmt.Sprint(mt.ID)), Attendances: []BatchEntry{{StudentID: s.ID}}})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMeeting(ctx, teacher, mt.ID))
	all, err := f.repo.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, f.svc.DeleteMeeting(ctx, teacher, mt.ID), ErrNotFound)
}

func TestQueuedSummary(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs := queue.NewInMemory(1)
	f.svc.WithJobs(jobs)
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	m := f.meeting(t, teacher, "Async", 1)
	assert.Equal(t, "Meeting about Async. (AI summary pending)", m.AISummary)
	assert.Zero(t, f.sum.count())

	msgs, err := jobs.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, queue.TypeSummarize, msg.Type)
	assert.Equal(t, fmt.Sprint(m.ID), string(msg.Body))

	require.NoError(t, f.svc.RefreshSummary(ctx, m.ID))
	got, err := f.repo.MeetingByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summary of Async", got.AISummary)
}

func TestQueuedSummaryFallsBackInline(t *testing.T) {
	f := newFixture(t)
	jobs := queue.NewInMemory(1)
	require.NoError(t, jobs.Publish(context.Background(), queue.Message{Type: "filler"}))
	f.svc.WithJobs(jobs)
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)

	m := f.meeting(t, teacher, "Full queue", 1)
	assert.Equal(t, "Summary of Full queue", m.AISummary)
	assert.ErrorIs(t, f.svc.RefreshSummary(context.Background(), m.ID+1), ErrNotFound)
}

func TestSummaryWorker(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs := queue.NewInMemory(8)
	f.svc.WithJobs(jobs)
	_, teacher := f.member(t, "t@club.org", auth.RoleTeacher)
	m := f.meeting(t, teacher, "Worker", 1)

	msgs := make(chan queue.Message, 4)
	msgs <- queue.Message{Type: "other", Body: []byte("1")}
	msgs <- queue.Message{Type: queue.TypeSummarize, Body: []byte("junk")}
	msgs <- queue.Message{Type: queue.TypeSummarize, Body: []byte("9999")}
	msgs <- queue.Message{Type: queue.TypeSummarize, Body: []byte(fmt.Sprint(m.ID))}
	close(msgs)

	f.svc.RunSummaryWorker(ctx, msgs)

	got, err := f.repo.MeetingByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summary of Worker", got.AISummary)
	assert.Equal(t, 1, f.sum.count())
}
