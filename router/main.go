package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/enrollment-api/database"
	"github.com/sahilchouksey/enrollment-api/handlers"
	course_handlers "github.com/sahilchouksey/enrollment-api/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/enrollment-api/handlers/enrollment"
	enrollment_service "github.com/sahilchouksey/enrollment-api/services/enrollment"
	"github.com/sahilchouksey/enrollment-api/utils"
	"github.com/sahilchouksey/enrollment-api/utils/middleware"
)

// Options configures the HTTP surface
type Options struct {
	AllowedOrigins string
	SessionTTL     time.Duration
	// SecureCookie marks the session cookie Secure, set outside development
	SecureCookie  bool
	DisableLogger bool
	// Redis is pinged by /ping when sessions live in Redis
	Redis handlers.Pinger
}

func SetupRoutes(app *fiber.App, store database.Storage, manager *enrollment_service.Manager, opts Options) {
	courseHandler := course_handlers.NewCourseHandler()
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(manager, opts.SessionTTL, opts.SecureCookie)

	// Apply security middleware
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins: opts.AllowedOrigins,
		DisableLogger:  opts.DisableLogger,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.CheckHealth(opts.Redis), store))

	// API v1 group
	api := app.Group("/api/v1")

	// Courses routes
	courses := api.Group("/courses")
	// Course cards for the landing page
	courses.Get("/", courseHandler.ListCourses)
	// Selectable courses on the form
	courses.Get("/options", courseHandler.ListCourseOptions)

	// Enrollment wizard routes, scoped to the session cookie
	enrollment := api.Group("/enrollment")
	enrollment.Get("/", enrollmentHandler.GetEnrollment)
	enrollment.Put("/draft", enrollmentHandler.SaveDraft)
	enrollment.Post("/submit", enrollmentHandler.Submit)
	enrollment.Post("/confirm", enrollmentHandler.Confirm)
	enrollment.Post("/back", enrollmentHandler.GoBack)
}
