package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "enrollment-api",
			ErrorHandler: errorHandler,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Info("Starting API Server")
	log.Infof("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler keeps unhandled errors in the same envelope as handler responses
func errorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if !errors.As(err, &e) {
		log.Errorf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return response.InternalServerError(c, "")
	}

	switch {
	case e.Code == fiber.StatusNotFound:
		return response.NotFound(c, e.Message)
	case e.Code < fiber.StatusInternalServerError:
		return response.Error(c, e.Code, e.Message, "BAD_REQUEST")
	default:
		return response.Error(c, e.Code, e.Message, "INTERNAL_ERROR")
	}
}
