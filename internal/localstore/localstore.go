package localstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("snapshot not found")

const (
	TasksKey   = "day-planner-tasks"
	SessionKey = "day-planner-session"
)

// Snapshot is a string-keyed JSON blob, mirroring the browser
// localStorage contract the store persists through.
type Snapshot struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db *gorm.DB
}

func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put stores value under key, overwriting any previous snapshot.
func (s *Store) Put(key, value string) error {
	snapshot := Snapshot{Key: key, Value: value, UpdatedAt: time.Now()}

	err := s.db.Save(&snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}

	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var snapshot Snapshot
	err := s.db.First(&snapshot, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}

	return snapshot.Value, nil
}

func (s *Store) Delete(key string) error {
	return s.db.Delete(&Snapshot{}, "key = ?", key).Error
}

func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
