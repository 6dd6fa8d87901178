// Package statestore mutates the target application's SQLite key/value
// store (the ItemTable inside state.vscdb) plus its sidecar files:
// credential swap, telemetry identity reset, and history purge.
package statestore

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Item is one row of the target's key/value table.
type Item struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
}

func (Item) TableName() string { return "ItemTable" }

// Store wraps a single state.vscdb database.
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens (creating if absent) the state store at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("migrate state store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing state store without creating or
// migrating anything. Used for reading the target's live session.
func OpenReadOnly(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state store read-only: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path the store was opened on.
func (s *Store) Path() string { return s.path }

// Get returns the value for key, or "" with found=false when absent.
func (s *Store) Get(key string) (value string, found bool, err error) {
	var item Item
	result := s.db.Where("key = ?", key).First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, result.Error
	}
	return item.Value, true, nil
}

// Set upserts a single key.
func (s *Store) Set(key, value string) error {
	return s.db.Save(&Item{Key: key, Value: value}).Error
}

// Delete removes a key. Absent keys are not an error.
func (s *Store) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&Item{}).Error
}

// Transaction runs fn atomically against the store.
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
