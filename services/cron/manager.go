package cron

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/enrollment-api/model"
	"github.com/sahilchouksey/enrollment-api/services/enrollment"
	"gorm.io/gorm"
)

// EnrollmentCounter reports enrollments still waiting for a confirmed appointment
type EnrollmentCounter interface {
	CountUnconfirmedEnrollments(ctx context.Context, submittedBefore time.Time) (int64, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron     *cron.Cron
	db       *gorm.DB
	counter  EnrollmentCounter
	sessions enrollment.Sweeper
	now      func() time.Time
}

// NewCronManager creates a new cron manager.
// db may be nil, in which case job runs are only logged, not recorded.
// sessions may be nil when the session store expires entries on its own.
func NewCronManager(db *gorm.DB, counter EnrollmentCounter, sessions enrollment.Sweeper) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:     c,
		db:       db,
		counter:  counter,
		sessions: sessions,
		now:      time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Info("Starting cron jobs...")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	log.Info("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Info("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every minute: Evict idle enrollment sessions
	if m.sessions != nil {
		_, err := m.cron.AddFunc("0 * * * * *", func() {
			m.logJobStart(jobSweepSessions)
			m.SweepIdleSessions()
		})
		if err != nil {
			return err
		}
	}

	// 2. Every hour: Report enrollments without a confirmed appointment
	if m.counter != nil {
		_, err := m.cron.AddFunc("0 0 * * * *", func() {
			m.logJobStart(jobReportUnconfirmed)
			m.ReportUnconfirmedEnrollments()
		})
		if err != nil {
			return err
		}
	}

	log.Info("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Infof("[CRON] Starting job: %s at %s", jobName, m.now().Format(time.RFC3339))

	if m.db == nil {
		return
	}
	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
		Metadata:  "{}",
	}
	if err := m.db.Create(&cronLog).Error; err != nil {
		log.Warnf("[CRON] Failed to record start of %s: %v", jobName, err)
	}
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Infof("[CRON] Completed job: %s - %s", jobName, message)

	m.finishJob(jobName, map[string]interface{}{
		"status":  "completed",
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Errorf("[CRON] Error in job: %s - %v", jobName, err)

	m.finishJob(jobName, map[string]interface{}{
		"status":    "failed",
		"error_msg": err.Error(),
	})
}

// finishJob closes the latest running log row of jobName
func (m *CronManager) finishJob(jobName string, updates map[string]interface{}) {
	if m.db == nil {
		return
	}

	var running model.CronJobLog
	err := m.db.Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		First(&running).Error
	if err != nil {
		log.Warnf("[CRON] No running log row for %s: %v", jobName, err)
		return
	}

	completedAt := m.now()
	updates["completed_at"] = completedAt
	updates["duration"] = int(completedAt.Sub(running.StartedAt).Milliseconds())

	if err := m.db.Model(&running).Updates(updates).Error; err != nil {
		log.Warnf("[CRON] Failed to record end of %s: %v", jobName, err)
	}
}
