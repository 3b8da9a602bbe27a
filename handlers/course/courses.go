package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/enrollment-api/model"
	"github.com/sahilchouksey/enrollment-api/utils/response"
)

// CourseHandler serves the course catalogue shown on the landing page
type CourseHandler struct {
	cards   []model.CourseCard
	options []string
}

// NewCourseHandler creates a new course handler
func NewCourseHandler() *CourseHandler {
	return &CourseHandler{
		cards:   model.CourseCards,
		options: model.CourseOptions,
	}
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	return response.Success(c, h.cards)
}

// ListCourseOptions handles GET /api/v1/courses/options
func (h *CourseHandler) ListCourseOptions(c *fiber.Ctx) error {
	return response.Success(c, h.options)
}
