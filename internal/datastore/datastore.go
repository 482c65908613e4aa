// Package datastore is the remote record store used for authenticated
// identities. It keeps products and preferences in SQLite or MySQL via GORM.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/foodscan/internal/datastore/entities"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

const componentName = "datastore"

// Supported drivers.
const (
	DriverNone   = "none"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const slowQueryThreshold = 200 * time.Millisecond

// Config selects and configures the database.
type Config struct {
	Driver string
	SQLite SQLiteConfig
	MySQL  MySQLConfig
}

// SQLiteConfig configures the SQLite database file.
type SQLiteConfig struct {
	Path string
}

// MySQLConfig configures the MySQL connection.
type MySQLConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Manager owns the database connection.
type Manager struct {
	db       *gorm.DB
	driver   string
	location string
	log      logger.Logger
}

// Open connects to the configured database. Call Initialize before use.
func Open(cfg Config, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	gormCfg := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	}

	var (
		dialector gorm.Dialector
		location  string
	)
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.SQLite.Path == "" {
			return nil, configError("sqlite path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component(componentName).
				Category(errors.CategoryFileIO).
				Context("path", cfg.SQLite.Path).
				Build()
		}
		dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.SQLite.Path)
		dialector = sqlite.Open(dsn)
		location = cfg.SQLite.Path
	case DriverMySQL:
		m := cfg.MySQL
		if m.Host == "" || m.Database == "" {
			return nil, configError("mysql host and database are required")
		}
		if m.Port == "" {
			m.Port = "3306"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			m.Username, m.Password, m.Host, m.Port, m.Database)
		dialector = mysql.Open(dsn)
		location = fmt.Sprintf("%s:%s/%s", m.Host, m.Port, m.Database)
	default:
		return nil, configError(fmt.Sprintf("unsupported database driver %q", cfg.Driver))
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open database: %w", err)).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("driver", cfg.Driver).
			Context("location", location).
			Build()
	}

	if cfg.Driver == DriverMySQL {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to get underlying database: %w", err)).
				Component(componentName).
				Category(errors.CategoryDatabase).
				Build()
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database opened",
		logger.String("driver", cfg.Driver),
		logger.String("location", location))

	return &Manager{db: db, driver: cfg.Driver, location: location, log: log}, nil
}

// Initialize creates or migrates the schema.
func (m *Manager) Initialize() error {
	if err := m.db.AutoMigrate(&entities.ProductRecord{}, &entities.PreferencesRecord{}); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("driver", m.driver).
			Build()
	}
	return nil
}

// DB returns the GORM handle.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	return m.driver
}

// Products returns a product repository on this database.
func (m *Manager) Products() *ProductRepository {
	return NewProductRepository(m.db)
}

// Preferences returns a preferences repository on this database.
func (m *Manager) Preferences() *PreferencesRepository {
	return NewPreferencesRepository(m.db)
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	m.log.Debug("closing database", logger.String("location", m.location))
	return sqlDB.Close()
}

func configError(msg string) error {
	return errors.Newf("%s", msg).
		Component(componentName).
		Category(errors.CategoryConfiguration).
		Build()
}
