package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/enrollment-api/model"
	enrollment_service "github.com/sahilchouksey/enrollment-api/services/enrollment"
	"github.com/sahilchouksey/enrollment-api/services/notify"
)

type memoryPersistence struct {
	mu        sync.Mutex
	created   []model.StudentEnrollment
	confirmed []uint
	onConfirm func()
}

func (p *memoryPersistence) CreateEnrollment(ctx context.Context, e *model.StudentEnrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.ID = uint(len(p.created) + 1)
	p.created = append(p.created, *e)
	return nil
}

func (p *memoryPersistence) ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error {
	if p.onConfirm != nil {
		p.onConfirm()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, id)
	return nil
}

type envelope struct {
	Success bool                     `json:"success"`
	Data    *enrollment_service.View `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupTestApp() (*fiber.App, *memoryPersistence) {
	store := &memoryPersistence{}
	manager := enrollment_service.NewManager(store, enrollment_service.NewMemorySessionStore(time.Hour), notify.Nop{}, enrollment_service.Config{
		SchedulingURL: "https://calendar.example.com/book",
	})
	h := NewEnrollmentHandler(manager, time.Hour, false)

	app := fiber.New()
	group := app.Group("/api/v1/enrollment")
	group.Get("/", h.GetEnrollment)
	group.Put("/draft", h.SaveDraft)
	group.Post("/submit", h.Submit)
	group.Post("/confirm", h.Confirm)
	group.Post("/back", h.GoBack)
	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, cookie *http.Cookie) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	resp.Body.Close()
	return resp, env
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func validForm() map[string]string {
	return map[string]string{
		"studentName":      "Jane Doe",
		"email":            "jane@example.com",
		"phone":            "+1 555 123 4567",
		"education":        "BSc Computer Science",
		"interestedCourse": "Devops",
	}
}

func TestEnrollmentHappyPath(t *testing.T) {
	app, store := setupTestApp()

	resp, env := doRequest(t, app, http.MethodGet, "/api/v1/enrollment", nil, nil)
	if resp.StatusCode != fiber.StatusOK || env.Data.State != enrollment_service.StateEditing {
		t.Fatalf("initial status=%d body=%+v", resp.StatusCode, env)
	}
	cookie := sessionCookie(t, resp)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	resp, env = doRequest(t, app, http.MethodPost, "/api/v1/enrollment/submit", validForm(), cookie)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("submit status=%d body=%+v", resp.StatusCode, env)
	}
	if env.Data.State != enrollment_service.StateScheduling || env.Data.SchedulingURL == "" {
		t.Fatalf("submit view = %+v", env.Data)
	}
	if len(store.created) != 1 || store.created[0].Email != "jane@example.com" {
		t.Fatalf("created = %+v", store.created)
	}

	resp, env = doRequest(t, app, http.MethodPost, "/api/v1/enrollment/confirm", nil, cookie)
	if resp.StatusCode != fiber.StatusOK || env.Data.State != enrollment_service.StateSuccess {
		t.Fatalf("confirm status=%d body=%+v", resp.StatusCode, env)
	}
	if len(store.confirmed) != 1 || store.confirmed[0] != 1 {
		t.Errorf("confirmed = %v", store.confirmed)
	}
}

func TestEnrollmentSubmitValidationError(t *testing.T) {
	app, store := setupTestApp()

	form := validForm()
	form["phone"] = "123"
	form["interestedCourse"] = ""

	resp, env := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/submit", form, nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if env.Success || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("body = %+v", env)
	}
	if env.Data == nil || env.Data.Errors["phone"] != "Phone number must be at least 10 digits" || env.Data.Errors["interestedCourse"] != "Please select a course" {
		t.Errorf("field errors = %+v", env.Data)
	}
	if len(store.created) != 0 {
		t.Error("invalid submission must not be stored")
	}
}

func TestEnrollmentInvalidTransition(t *testing.T) {
	app, _ := setupTestApp()

	resp, env := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/confirm", nil, nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "INVALID_TRANSITION" {
		t.Errorf("body = %+v", env)
	}
}

func TestEnrollmentGoBackClearsForm(t *testing.T) {
	app, _ := setupTestApp()

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/submit", validForm(), nil)
	cookie := sessionCookie(t, resp)

	resp, env := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/back", nil, cookie)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.Data.State != enrollment_service.StateEditing || env.Data.Draft != (model.EnrollmentForm{}) {
		t.Errorf("view = %+v", env.Data)
	}
}

func TestEnrollmentDraftIsPerSession(t *testing.T) {
	app, _ := setupTestApp()

	resp, _ := doRequest(t, app, http.MethodPut, "/api/v1/enrollment/draft", map[string]string{"studentName": "Ja"}, nil)
	cookie := sessionCookie(t, resp)

	_, env := doRequest(t, app, http.MethodGet, "/api/v1/enrollment", nil, cookie)
	if env.Data.Draft.StudentName != "Ja" {
		t.Errorf("draft = %+v", env.Data.Draft)
	}

	// a malformed cookie gets a fresh session
	_, env = doRequest(t, app, http.MethodGet, "/api/v1/enrollment", nil, &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
	if env.Data.Draft != (model.EnrollmentForm{}) {
		t.Errorf("fresh session draft = %+v", env.Data.Draft)
	}
}

func TestEnrollmentBadBody(t *testing.T) {
	app, _ := setupTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollment/submit", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEnrollmentConfirmWhileBusy(t *testing.T) {
	app, store := setupTestApp()

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/submit", validForm(), nil)
	cookie := sessionCookie(t, resp)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.onConfirm = func() {
		close(entered)
		<-release
	}

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollment/confirm", nil)
		req.AddCookie(cookie)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Errorf("first confirm: %v", err)
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-entered

	resp, env := doRequest(t, app, http.MethodPost, "/api/v1/enrollment/confirm", nil, cookie)
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if env.Success || env.Error == nil || env.Error.Code != "SESSION_BUSY" {
		t.Errorf("body = %+v", env)
	}

	close(release)
	if status := <-done; status != fiber.StatusOK {
		t.Errorf("first confirm status = %d", status)
	}
}
