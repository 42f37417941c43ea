package club

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codingclub/internal/auth"
)

// maxUsernameBase leaves room for a numeric suffix within the 150 char column.
const maxUsernameBase = 140

// Repository persists club data through GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repo.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the schema.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(Models()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---- members ----

// EmailExists reports whether a member already uses the email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Member{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateMember inserts m, deriving a unique username from its email. A
// concurrent insert that grabs the same username is retried.
func (r *Repository) CreateMember(ctx context.Context, m *Member) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			name, err := uniqueUsername(tx, m.Email)
			if err != nil {
				return err
			}
			m.Username = name
			return tx.Create(m).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		if taken, cerr := r.EmailExists(ctx, m.Email); cerr != nil {
			return cerr
		} else if taken {
			return ErrEmailTaken
		}
		m.ID = 0
	}
	return err
}

// UsernameBase is the email local part used as the username stem.
func UsernameBase(email string) string {
	base, _, _ := strings.Cut(email, "@")
	if len(base) > maxUsernameBase {
		base = base[:maxUsernameBase]
	}
	return base
}

// uniqueUsername returns base, base1, base2, ... whichever is free first.
func uniqueUsername(tx *gorm.DB, email string) (string, error) {
	base := UsernameBase(email)
	name := base
	for n := 1; ; n++ {
		var count int64
		if err := tx.Model(&Member{}).Where("username = ?", name).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return name, nil
		}
		name = base + strconv.Itoa(n)
	}
}

func (r *Repository) MemberByID(ctx context.Context, id uint) (*Member, error) {
	var m Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *Repository) MemberByEmail(ctx context.Context, email string) (*Member, error) {
	var m Member
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListMembers returns members ordered by id, optionally filtered by role.
func (r *Repository) ListMembers(ctx context.Context, role auth.Role) ([]Member, error) {
	q := r.db.WithContext(ctx).Order("id")
	if role != "" {
		q = q.Where("account_type = ?", role)
	}
	var out []Member
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMember saves the editable columns of m. Email is the only unique one,
// so a unique violation reports ErrEmailTaken.
func (r *Repository) UpdateMember(ctx context.Context, m *Member) error {
	err := r.db.WithContext(ctx).Model(m).
		Select("email", "account_type", "first_name", "last_name", "grade", "password_hash").
		Updates(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

// DeleteMember removes a member and everything that depends on it: their own
// attendance rows and refresh tokens go, references as creator or recorder are
// cleared.
func (r *Repository) DeleteMember(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Attendance{}).Where("recorded_by_id = ?", id).Update("recorded_by_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&Meeting{}).Where("created_by_id = ?", id).Update("created_by_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&RefreshToken{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Member{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ---- meetings ----

func (r *Repository) CreateMeeting(ctx context.Context, m *Meeting) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (r *Repository) MeetingByID(ctx context.Context, id uint) (*Meeting, error) {
	var m Meeting
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListMeetings returns meetings newest first.
func (r *Repository) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var out []Meeting
	if err := r.db.WithContext(ctx).Preload("CreatedBy").Order("date DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMeeting writes the editable meeting columns and the summary.
func (r *Repository) UpdateMeeting(ctx context.Context, m *Meeting) error {
	return r.db.WithContext(ctx).Model(m).Omit(clause.Associations).
		Select("title", "date", "description", "notes", "location", "ai_summary", "updated_at").
		Updates(m).Error
}

// SetMeetingSummary stores a summary computed out of band.
func (r *Repository) SetMeetingSummary(ctx context.Context, id uint, summary string) error {
	res := r.db.WithContext(ctx).Model(&Meeting{}).Where("id = ?", id).Update("ai_summary", summary)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMeeting removes the meeting and its attendance.
func (r *Repository) DeleteMeeting(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", id).Delete(&Attendance{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Meeting{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) MeetingExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Meeting{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---- attendance ----

func (r *Repository) attendanceQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Student").Order("meeting_id").Order("student_id")
}

func (r *Repository) ListAttendance(ctx context.Context) ([]Attendance, error) {
	var out []Attendance
	if err := r.attendanceQuery(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AttendanceForMeeting returns the roster of one meeting.
func (r *Repository) AttendanceForMeeting(ctx context.Context, meetingID uint) ([]Attendance, error) {
	var out []Attendance
	if err := r.attendanceQuery(ctx).Where("meeting_id = ?", meetingID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) AttendanceByID(ctx context.Context, id uint) (*Attendance, error) {
	var a Attendance
	if err := r.db.WithContext(ctx).Preload("Student").First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// AttendancePairExists reports whether (meeting, student) is already recorded,
// ignoring the row with id exclude.
func (r *Repository) AttendancePairExists(ctx context.Context, meetingID, studentID, exclude uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&Attendance{}).Where("meeting_id = ? AND student_id = ?", meetingID, studentID)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) CreateAttendance(ctx context.Context, a *Attendance) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *Repository) UpdateAttendance(ctx context.Context, a *Attendance) error {
	return r.db.WithContext(ctx).Model(a).Omit(clause.Associations).
		Select("meeting_id", "student_id", "is_present").
		Updates(a).Error
}

func (r *Repository) DeleteAttendance(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Attendance{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchEntry is one student's presence in a batch recording.
type BatchEntry struct {
	StudentID uint
	IsPresent bool
}

// ReplaceAttendance atomically swaps the roster of a meeting for entries.
// Entries whose student is unknown or not a student are dropped; for repeated
// students the last entry wins. It returns the number of rows written.
func (r *Repository) ReplaceAttendance(ctx context.Context, meetingID uint, entries []BatchEntry, recordedBy uint) (int, error) {
	created := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialize concurrent replacements of the same roster
		var m Meeting
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&m, meetingID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&Attendance{}).Error; err != nil {
			return err
		}

		order := make([]uint, 0, len(entries))
		present := make(map[uint]bool, len(entries))
		for _, e := range entries {
			if e.StudentID == 0 {
				continue
			}
			if _, seen := present[e.StudentID]; !seen {
				order = append(order, e.StudentID)
			}
			present[e.StudentID] = e.IsPresent
		}
		if len(order) == 0 {
			return nil
		}

		var students []uint
		if err := tx.Model(&Member{}).
			Where("id IN ? AND account_type = ?", order, auth.RoleStudent).
			Pluck("id", &students).Error; err != nil {
			return err
		}
		valid := make(map[uint]bool, len(students))
		for _, id := range students {
			valid[id] = true
		}

		rec := recordedBy
		now := time.Now()
		rows := make([]Attendance, 0, len(students))
		for _, id := range order {
			if !valid[id] {
				continue
			}
			rows = append(rows, Attendance{
				MeetingID:    meetingID,
				StudentID:    id,
				IsPresent:    present[id],
				RecordedByID: &rec,
				RecordedAt:   now,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return err
		}
		created = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ---- refresh tokens ----

func (r *Repository) SaveRefreshToken(ctx context.Context, memberID uint, tokenHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&RefreshToken{
		MemberID:  memberID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}).Error
}

// ActiveRefreshToken returns the unrevoked, unexpired token with the hash.
func (r *Repository) ActiveRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var rt RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = ? AND expires_at > ?", tokenHash, false, time.Now()).
		First(&rt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

// RevokeRefreshTokens revokes every live token of a member.
func (r *Repository) RevokeRefreshTokens(ctx context.Context, memberID uint) error {
	return r.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("member_id = ? AND revoked = ?", memberID, false).
		Update("revoked", true).Error
}
