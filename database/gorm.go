package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/enrollment-api/config"
	"github.com/sahilchouksey/enrollment-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnvironmentVariable) (*GORMStore, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER_NAME,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if env.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL Database with GORM.")

	return NewGORMStore(db), nil
}

// NewGORMStore wraps an open GORM connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Println("Running GORM AutoMigrate...")

	err := s.db.AutoMigrate(
		&model.StudentEnrollment{},
		&model.CronJobLog{},
	)
	if err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Println("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services
func (s *GORMStore) GetDB() interface{} {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateEnrollment inserts an unconfirmed record and fills in its generated ID
func (s *GORMStore) CreateEnrollment(ctx context.Context, enrollment *model.StudentEnrollment) error {
	enrollment.AppointmentScheduled = false
	enrollment.AppointmentConfirmedAt = nil

	if err := s.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// ConfirmAppointment marks the record's appointment as scheduled
func (s *GORMStore) ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&model.StudentEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"appointment_scheduled":    true,
			"appointment_confirmed_at": confirmedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to confirm enrollment %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("enrollment %d: %w", id, ErrEnrollmentNotFound)
	}
	return nil
}

// CountUnconfirmedEnrollments counts records submitted before the cutoff that were never confirmed
func (s *GORMStore) CountUnconfirmedEnrollments(ctx context.Context, submittedBefore time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.StudentEnrollment{}).
		Where("appointment_scheduled = ? AND form_submitted_at < ?", false, submittedBefore).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unconfirmed enrollments: %w", err)
	}
	return count, nil
}
