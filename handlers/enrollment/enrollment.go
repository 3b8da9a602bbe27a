package enrollment

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/sahilchouksey/enrollment-api/model"
	enrollment_service "github.com/sahilchouksey/enrollment-api/services/enrollment"
	"github.com/sahilchouksey/enrollment-api/utils/response"
)

// SessionCookie carries the browser session id
const SessionCookie = "enrollment_session"

// EnrollmentHandler handles the enrollment wizard endpoints
type EnrollmentHandler struct {
	manager      *enrollment_service.Manager
	sessionTTL   time.Duration
	secureCookie bool
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(manager *enrollment_service.Manager, sessionTTL time.Duration, secureCookie bool) *EnrollmentHandler {
	return &EnrollmentHandler{
		manager:      manager,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
	}
}

// GetEnrollment handles GET /api/v1/enrollment
func (h *EnrollmentHandler) GetEnrollment(c *fiber.Ctx) error {
	view, err := h.manager.View(c.UserContext(), h.sessionID(c))
	if err != nil {
		return h.fail(c, nil, err)
	}
	return response.Success(c, view)
}

// SaveDraft handles PUT /api/v1/enrollment/draft
func (h *EnrollmentHandler) SaveDraft(c *fiber.Ctx) error {
	var form model.EnrollmentForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	view, err := h.manager.SaveDraft(c.UserContext(), h.sessionID(c), form)
	if err != nil {
		return h.fail(c, view, err)
	}
	return response.Success(c, view)
}

// Submit handles POST /api/v1/enrollment/submit
func (h *EnrollmentHandler) Submit(c *fiber.Ctx) error {
	var form model.EnrollmentForm
	if err := c.BodyParser(&form); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	meta := model.SubmissionContext{
		RequestID: utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID)),
		ClientIP:  utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}

	view, err := h.manager.Submit(c.UserContext(), h.sessionID(c), form, meta)
	if err != nil {
		return h.fail(c, view, err)
	}
	return response.Success(c, view)
}

// Confirm handles POST /api/v1/enrollment/confirm
func (h *EnrollmentHandler) Confirm(c *fiber.Ctx) error {
	view, err := h.manager.Confirm(c.UserContext(), h.sessionID(c))
	if err != nil {
		return h.fail(c, view, err)
	}
	return response.Success(c, view)
}

// GoBack handles POST /api/v1/enrollment/back
func (h *EnrollmentHandler) GoBack(c *fiber.Ctx) error {
	view, err := h.manager.GoBack(c.UserContext(), h.sessionID(c))
	if err != nil {
		return h.fail(c, view, err)
	}
	return response.Success(c, view)
}

func (h *EnrollmentHandler) fail(c *fiber.Ctx, view *enrollment_service.View, err error) error {
	var verr *enrollment_service.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.ValidationError(c, view)
	case errors.Is(err, enrollment_service.ErrInvalidTransition):
		return response.Conflict(c, err.Error(), "INVALID_TRANSITION", view)
	case errors.Is(err, enrollment_service.ErrSessionBusy):
		return response.Conflict(c, "Your previous request is still being processed", "SESSION_BUSY", nil)
	default:
		log.Errorf("enrollment request failed: %v", err)
		return response.InternalServerError(c, "Failed to process enrollment")
	}
}

// sessionID returns the caller's session id, issuing a new one when the cookie is missing or malformed
func (h *EnrollmentHandler) sessionID(c *fiber.Ctx) string {
	sid := utils.CopyString(c.Cookies(SessionCookie))
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return sid
}
