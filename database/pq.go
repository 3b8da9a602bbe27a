package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/sahilchouksey/enrollment-api/config"
	"github.com/sahilchouksey/enrollment-api/model"
)

// ErrEnrollmentNotFound is returned when an update targets an unknown record
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GetDB returns *gorm.DB for GORMStore, *sql.DB for PostgreSQLStore
	GetDB() interface{}

	// Enrollment methods
	CreateEnrollment(ctx context.Context, enrollment *model.StudentEnrollment) error
	ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error
	CountUnconfirmedEnrollments(ctx context.Context, submittedBefore time.Time) (int64, error)
}

// Open connects to the store selected by DB_DRIVER ("gorm" or "pq")
func Open(env *config.EnvironmentVariable) (Storage, error) {
	switch env.DB_DRIVER {
	case "", "gorm":
		return StartGORM(env)
	case "pq":
		return Start(env)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", env.DB_DRIVER)
	}
}

type PostgreSQLStore struct {
	db *sql.DB
}

func Start(env *config.EnvironmentVariable) (*PostgreSQLStore, error) {
	connectStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env.DB_HOST, env.DB_PORT, env.DB_USER_NAME, env.DB_PASSWORD, env.DB_NAME, env.DB_SSL_MODE,
	)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		log.Println("Unable to Start PostgresSQL Database:", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach PostgreSQL: %w", err)
	}

	log.Println("Successfully connected to PostgresSQL Database.")
	return &PostgreSQLStore{
		db: db,
	}, nil
}

func (s *PostgreSQLStore) Init() error {
	log.Println("Initializing PostgresSQL Database.")
	return s.Initialize()
}

func (s *PostgreSQLStore) Close() error {
	log.Println("Closing PostgresSQL Database.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// GetDB returns the underlying *sql.DB
func (s *PostgreSQLStore) GetDB() interface{} {
	return s.db
}
