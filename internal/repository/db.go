package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ffLog "family-finance/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when an addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// NewDB opens a SQLite database and applies the embedded migrations.
func NewDB(dsn string, log *ffLog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "family_finance.db"
	}
	if log == nil {
		log = ffLog.Discard()
	}
	log = log.WithComponent(ffLog.ComponentStorage)

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	dsn = withPragmas(dsn)

	dbLogger := logger.New(
		log.StdLogger(slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  dbLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// SQLite serializes writers; one connection keeps in-memory databases
	// alive and avoids SQLITE_BUSY between pooled connections.
	sqlDB.SetMaxOpenConns(1)

	if err := runMigrations(dsn); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info("database ready", "dsn", redactDSN(dsn))
	return db, nil
}

func runMigrations(dsn string) error {
	// Separate connection: the migrate driver closes its *sql.DB on Close.
	migrateDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite3.WithInstance(migrateDB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// withPragmas appends the connection options every connection needs.
func withPragmas(dsn string) string {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	if !isMemory(dsn) {
		params = append(params, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func redactDSN(dsn string) string {
	return strings.Split(dsn, "?")[0]
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if isMemory(dsn) {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// notFound maps gorm's sentinel to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// OpenMemory opens a private in-memory database with migrations applied.
func OpenMemory(log *ffLog.Logger) (*gorm.DB, error) {
	return NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), log)
}
