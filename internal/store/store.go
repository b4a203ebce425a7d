package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetBrandByID retrieves a brand by ID
func (s *Store) GetBrandByID(ctx context.Context, id int64) (*models.Brand, error) {
	var brand models.Brand
	err := s.db.GetContext(ctx, &brand, "SELECT * FROM brands WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("brand", id)
	}
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetBrandByName retrieves a brand by exact name. A missing name is an error,
// never a fallback to some other brand.
func (s *Store) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	err := s.db.GetContext(ctx, &brand, "SELECT * FROM brands WHERE name = $1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("brand", name)
	}
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("category", id)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategoryByName retrieves a category by exact name
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE name = $1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("category", name)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetClientByID retrieves a client by ID
func (s *Store) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := s.db.GetContext(ctx, &client, "SELECT * FROM clients WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("client", id)
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetSellerByID retrieves a seller by ID
func (s *Store) GetSellerByID(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReferenceNotFoundError("seller", id)
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
