package main

import (
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/enrollment-api/config"
	"github.com/sahilchouksey/enrollment-api/database"
	"github.com/sahilchouksey/enrollment-api/model"
	"gorm.io/gorm"
)

func main() {
	// Load .env
	if err := config.LoadENV(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	store, err := database.StartGORM(env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	db := store.GetDB().(*gorm.DB)

	fmt.Println("========================================")
	fmt.Println("CRON JOB RUNS")
	fmt.Println("========================================")

	var runs []model.CronJobLog
	if err := db.Order("started_at DESC").Limit(20).Find(&runs).Error; err != nil {
		log.Fatalf("Failed to fetch job runs: %v", err)
	}

	if len(runs) == 0 {
		fmt.Println("\n❌ No cron job runs found in database")
	} else {
		fmt.Printf("\n📋 Found %d recent job runs:\n\n", len(runs))

		for _, run := range runs {
			statusIcon := "⏳"
			switch run.Status {
			case "completed":
				statusIcon = "✅"
			case "failed":
				statusIcon = "❌"
			case "running":
				statusIcon = "🔄"
			}

			fmt.Printf("─────────────────────────────────────\n")
			fmt.Printf("%s %s (#%d)\n", statusIcon, run.JobName, run.ID)
			fmt.Printf("   Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.CompletedAt != nil {
				fmt.Printf("   Completed: %s (%dms)\n", run.CompletedAt.Format("2006-01-02 15:04:05"), run.Duration)
			}
			if run.Message != "" {
				fmt.Printf("   Message: %s\n", truncate(run.Message, 80))
			}
			if run.ErrorMsg != "" {
				fmt.Printf("   Error: %s\n", truncate(run.ErrorMsg, 80))
			}
		}
	}

	fmt.Println("\n========================================")
	fmt.Println("RECENT ENROLLMENTS")
	fmt.Println("========================================")

	var enrollments []model.StudentEnrollment
	db.Order("created_at DESC").Limit(10).Find(&enrollments)

	if len(enrollments) == 0 {
		fmt.Println("No enrollments found")
	} else {
		for _, e := range enrollments {
			bookedIcon := "○"
			if e.AppointmentScheduled {
				bookedIcon = "●"
			}
			fmt.Printf("%s #%d %s <%s> - %s (%s)\n",
				bookedIcon, e.ID, e.StudentName, e.Email, truncate(e.InterestedCourse, 40), e.CreatedAt.Format(time.RFC822))
		}
	}

	var pending int64
	db.Model(&model.StudentEnrollment{}).Where("appointment_scheduled = ?", false).Count(&pending)
	fmt.Printf("\nAwaiting appointment: %d\n", pending)

	fmt.Println("\n========================================")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
