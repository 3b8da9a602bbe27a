package model

import (
	"time"

	"gorm.io/datatypes"
)

// EnrollmentForm holds the values a prospective student types into the form.
// It is the client-held copy of the record and the source of the notification payload.
type EnrollmentForm struct {
	StudentName      string `json:"studentName" validate:"min=2,max=100"`
	Email            string `json:"email" validate:"email,max=255"`
	Phone            string `json:"phone" validate:"min=10,max=20"`
	Education        string `json:"education" validate:"min=2,max=200"`
	InterestedCourse string `json:"interestedCourse" validate:"required,course"`
}

// StudentEnrollment is the stored lead. Records are inserted once on submission,
// updated once on appointment confirmation and never deleted.
type StudentEnrollment struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	StudentName            string         `gorm:"type:varchar(100);not null" json:"studentName"`
	Email                  string         `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone                  string         `gorm:"type:varchar(20);not null" json:"phone"`
	Education              string         `gorm:"type:varchar(200);not null" json:"education"`
	InterestedCourse       string         `gorm:"type:varchar(100);not null;index" json:"interestedCourse"`
	AppointmentScheduled   bool           `gorm:"not null;default:false" json:"appointmentScheduled"`
	FormSubmittedAt        time.Time      `gorm:"not null" json:"formSubmittedAt"`
	AppointmentConfirmedAt *time.Time     `json:"appointmentConfirmedAt,omitempty"`
	SubmissionContext      datatypes.JSON `gorm:"type:jsonb" json:"submissionContext,omitempty"` // request id, ip, user agent
}

// TableName specifies the table name for StudentEnrollment
func (StudentEnrollment) TableName() string {
	return "students_enrollments"
}

// NewStudentEnrollment builds an unconfirmed record from accepted form values
func NewStudentEnrollment(form EnrollmentForm, submittedAt time.Time) *StudentEnrollment {
	return &StudentEnrollment{
		StudentName:          form.StudentName,
		Email:                form.Email,
		Phone:                form.Phone,
		Education:            form.Education,
		InterestedCourse:     form.InterestedCourse,
		AppointmentScheduled: false,
		FormSubmittedAt:      submittedAt,
	}
}

// SubmissionContext describes where a submission came from
type SubmissionContext struct {
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// EnrollmentEventType names an event sent to the automation endpoint
type EnrollmentEventType string

const (
	EnrollmentEventAppointmentConfirmed EnrollmentEventType = "appointment_confirmed"
)

// EnrollmentEvent is the JSON payload delivered to notification sinks
type EnrollmentEvent struct {
	Event                  EnrollmentEventType `json:"event"`
	EnrollmentID           *uint               `json:"enrollmentId,omitempty"`
	StudentName            string              `json:"studentName"`
	Email                  string              `json:"email"`
	Phone                  string              `json:"phone"`
	Education              string              `json:"education"`
	InterestedCourse       string              `json:"interestedCourse"`
	AppointmentScheduled   bool                `json:"appointmentScheduled"`
	FormSubmittedAt        *time.Time          `json:"formSubmittedAt,omitempty"`
	AppointmentConfirmedAt time.Time           `json:"appointmentConfirmedAt"`
	Timestamp              time.Time           `json:"timestamp"`
}
