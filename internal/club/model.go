package club

import (
	"strings"
	"time"

	"codingclub/internal/auth"
)

// Member is a club account. Email is the login identifier; Username is derived
// from it and kept unique.
type Member struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"size:254;not null;uniqueIndex"`
	Username     string    `gorm:"size:150;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:128;not null"`
	AccountType  auth.Role `gorm:"size:10;not null;index"`
	FirstName    string    `gorm:"size:30;not null"`
	LastName     string    `gorm:"size:30;not null"`
	Grade        *int
	DateJoined   time.Time `gorm:"autoCreateTime"`
}

// FullName joins first and last name, trimmed.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Meeting is a club session.
type Meeting struct {
	ID          uint      `gorm:"primaryKey"`
	Title       string    `gorm:"size:100;not null"`
	Date        time.Time `gorm:"not null;index"`
	Description string    `gorm:"type:text;not null"`
	Notes       string    `gorm:"type:text;not null"`
	Location    string    `gorm:"size:100;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedByID *uint   `gorm:"index"`
	CreatedBy   *Member `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	AISummary   string  `gorm:"column:ai_summary;type:text;not null"`
}

// Attendance records whether a student was present at a meeting.
type Attendance struct {
	ID           uint      `gorm:"primaryKey"`
	MeetingID    uint      `gorm:"not null;uniqueIndex:idx_attendance_meeting_student"`
	Meeting      *Meeting  `gorm:"foreignKey:MeetingID;constraint:OnDelete:CASCADE"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_attendance_meeting_student;index"`
	Student      *Member   `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	IsPresent    bool      `gorm:"not null"`
	RecordedByID *uint     `gorm:"index"`
	RecordedBy   *Member   `gorm:"foreignKey:RecordedByID;constraint:OnDelete:SET NULL"`
	RecordedAt   time.Time `gorm:"autoCreateTime"`
}

func (Attendance) TableName() string { return "attendance" }

// RefreshToken is an issued refresh token, stored by hash.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	MemberID  uint      `gorm:"not null;index"`
	Member    *Member   `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null"`
	CreatedAt time.Time
}

// Models lists every persisted type, in creation order for auto-migration.
func Models() []any {
	return []any{&Member{}, &Meeting{}, &Attendance{}, &RefreshToken{}}
}
