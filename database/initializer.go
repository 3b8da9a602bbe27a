package database

import (
	"log"
	"strings"
)

func (s *PostgreSQLStore) Initialize() error {
	log.Println("Initializing PostgresSQL Database.", "Initializing Tables")
	return s.InitTables()
}

// InitTables creates the tables used by the raw SQL store.
// The layout matches what GORM AutoMigrate produces for model.StudentEnrollment.
func (s *PostgreSQLStore) InitTables() error {
	enrollmentsTable := `
	CREATE TABLE IF NOT EXISTS students_enrollments (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		student_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		education VARCHAR(200) NOT NULL,
		interested_course VARCHAR(100) NOT NULL,
		appointment_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
		form_submitted_at TIMESTAMPTZ NOT NULL,
		appointment_confirmed_at TIMESTAMPTZ,
		submission_context JSONB
	);
	`

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_students_enrollments_email ON students_enrollments (email);
	CREATE INDEX IF NOT EXISTS idx_students_enrollments_interested_course ON students_enrollments (interested_course);
	`

	_, err := s.db.Exec(strings.Join([]string{enrollmentsTable, indexes}, ""))
	return err
}
