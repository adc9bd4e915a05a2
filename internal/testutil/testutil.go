// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"odinbook/internal/database"
	"odinbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated in-memory database private to the test.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewMiniredis starts an in-process Redis and returns it with a connected client.
func NewMiniredis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// ImageRepoStub is an in-memory blob store for tests.
type ImageRepoStub struct {
	mu     sync.Mutex
	items  map[uint]*models.Image
	nextID uint
	// StoreErr, when set, is returned by Store.
	StoreErr error
}

// NewImageRepoStub creates an empty in-memory image store.
func NewImageRepoStub() *ImageRepoStub {
	return &ImageRepoStub{items: make(map[uint]*models.Image), nextID: 1}
}

// Store keeps a copy of img and assigns it an ID.
func (s *ImageRepoStub) Store(_ context.Context, img *models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	img.ID = s.nextID
	s.nextID++
	cp := *img
	s.items[img.ID] = &cp
	return nil
}

// Get returns the stored image or a not-found error.
func (s *ImageRepoStub) Get(_ context.Context, id uint) (*models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.items[id]
	if !ok {
		return nil, models.NewNotFoundError("Image", id)
	}
	cp := *img
	return &cp, nil
}

// DeleteAll drops every stored image.
func (s *ImageRepoStub) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uint]*models.Image)
	return nil
}

// Len returns the number of stored images.
func (s *ImageRepoStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
