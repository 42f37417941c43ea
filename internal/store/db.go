package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// DB wraps the pgx-backed sql.DB and the GORM handle built on top of it.
type DB struct {
	Client *sql.DB
	Gorm   *gorm.DB
}

// Open picks the dialect from the URL: "sqlite:<dsn>" opens SQLite for local
// runs and tests, anything else is handed to pgx.
func Open(url string) (*DB, error) {
	if dsn, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return NewSQLite(dsn)
	}
	return NewDB(url)
}

// NewSQLite opens a SQLite database with foreign keys enforced. In-memory
// databases are pinned to one connection so every query sees the same data.
func NewSQLite(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	g, err := gorm.Open(sqlite.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}
	return &DB{Client: sqlDB, Gorm: g}, nil
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	sqlDB, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	g, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), GormConfig())
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{Client: sqlDB, Gorm: g}, sqlDB.PingContext(context.Background())
}

// GormConfig is shared by every dialect so driver errors are translated the
// same way (unique violations surface as gorm.ErrDuplicatedKey).
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
