package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/enrollment-api/model"
)

// CreateEnrollment inserts an unconfirmed record and fills in its generated ID
func (s *PostgreSQLStore) CreateEnrollment(ctx context.Context, enrollment *model.StudentEnrollment) error {
	query := `
		INSERT INTO students_enrollments
			(created_at, updated_at, student_name, email, phone, education, interested_course,
			 appointment_scheduled, form_submitted_at, submission_context)
		VALUES ($1, $1, $2, $3, $4, $5, $6, FALSE, $7, $8)
		RETURNING id;
	`

	now := time.Now()
	var submissionContext interface{}
	if len(enrollment.SubmissionContext) > 0 {
		submissionContext = []byte(enrollment.SubmissionContext)
	}

	err := s.db.QueryRowContext(ctx, query,
		now,
		enrollment.StudentName,
		enrollment.Email,
		enrollment.Phone,
		enrollment.Education,
		enrollment.InterestedCourse,
		enrollment.FormSubmittedAt,
		submissionContext,
	).Scan(&enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	enrollment.AppointmentScheduled = false
	return nil
}

// ConfirmAppointment marks the record's appointment as scheduled
func (s *PostgreSQLStore) ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error {
	query := `
		UPDATE students_enrollments
		SET appointment_scheduled = TRUE, appointment_confirmed_at = $2, updated_at = $3
		WHERE id = $1;
	`

	result, err := s.db.ExecContext(ctx, query, id, confirmedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to confirm enrollment %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm enrollment %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("enrollment %d: %w", id, ErrEnrollmentNotFound)
	}
	return nil
}

// CountUnconfirmedEnrollments counts records submitted before the cutoff that were never confirmed
func (s *PostgreSQLStore) CountUnconfirmedEnrollments(ctx context.Context, submittedBefore time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM students_enrollments
		WHERE appointment_scheduled = FALSE AND form_submitted_at < $1;
	`

	var count int64
	if err := s.db.QueryRowContext(ctx, query, submittedBefore).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unconfirmed enrollments: %w", err)
	}
	return count, nil
}
