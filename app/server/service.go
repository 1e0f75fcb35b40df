package server

import (
	"context"
	"errors"
	"time"

	"parley/app/config"
	"parley/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Service is the HTTP boundary the widget frontend talks to. It only
// reads snapshots and forwards submissions; all conversation state
// lives in the conversation service.
type Service struct {
	cfg             *config.Config
	appCtx          context.Context
	conversationSvc *conversation.Service
	validate        *validator.Validate

	app *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg:             do.MustInvoke[*config.Config](di),
		appCtx:          do.MustInvoke[context.Context](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Get("/api/conversation", s.handleSnapshot)
	s.app.Post("/api/messages", s.handleSubmit)
	s.app.Delete("/api/conversation", s.handleReset)
	s.app.Get("/api/events", s.handleEvents)

	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.app.Listen(s.cfg.Server.Address)
	})

	group.Go(func() error {
		<-ctx.Done()

		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return group.Wait()
}

// App exposes the fiber app for in-process request tests.
func (s *Service) App() *fiber.App {
	return s.app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}
