package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bankdesk/config"
	"bankdesk/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// NewDatabase применяет миграции и открывает подключение к базе данных
func NewDatabase(cfg *config.Config) (*Database, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Driver {
	case config.DriverSQLite:
		// Файл базы создается при первом запуске
		if dir := filepath.Dir(cfg.DB.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("ошибка создания директории базы данных: %w", err)
			}
		}
		if err := runSQLiteMigrations(cfg.DB.Path); err != nil {
			return nil, fmt.Errorf("ошибка выполнения SQL миграций: %w", err)
		}
		dialector = sqlite.Open(cfg.DB.Path)
	case config.DriverPostgres:
		if err := runPostgresMigrations(cfg); err != nil {
			return nil, fmt.Errorf("ошибка выполнения SQL миграций: %w", err)
		}
		dialector = postgres.Open(postgresDSN(cfg))
	default:
		return nil, fmt.Errorf("неподдерживаемый драйвер базы данных: %q", cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}

	if cfg.DB.Driver == config.DriverSQLite {
		// Один файл, одно соединение: все операции выполняются последовательно
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Database{DB: db}, nil
}

// GetDB возвращает экземпляр GORM
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger направляет логи gorm в общий логгер приложения
func newLogger(cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg.Log.SQL {
		level = logger.Info
	}

	return logger.New(
		gormWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormWriter пишет сообщения gorm без уровня, чтобы их не отсекал уровень логгера.
// Что именно логировать, решает LogLevel самого gorm.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	utils.Log.WithLevel(zerolog.NoLevel).Str("component", "gorm").Msgf(format, args...)
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
		cfg.DB.SSLMode,
	)
}

// runSQLiteMigrations выполняет миграции на отдельном соединении,
// которое закрывается вместе с экземпляром migrate
func runSQLiteMigrations(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("ошибка открытия файла базы данных: %w", err)
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("ошибка создания драйвера миграций: %w", err)
	}

	return applyMigrations("migrations/sqlite", func(src source.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	})
}

// runPostgresMigrations выполняет миграции для PostgreSQL
func runPostgresMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
		cfg.DB.SSLMode,
	)

	return applyMigrations("migrations/postgres", func(src source.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithSourceInstance("iofs", src, dsn)
	})
}

func applyMigrations(dir string, build func(src source.Driver) (*migrate.Migrate, error)) error {
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	m, err := build(src)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}

	return nil
}
