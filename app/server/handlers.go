package server

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parley/app/service/conversation"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
	"github.com/valyala/fasthttp"
)

type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type snapshotResponse struct {
	Messages []messageDTO `json:"messages"`
	Pending  bool         `json:"pending"`
}

type submitRequest struct {
	Text string `json:"text" validate:"required"`
}

type submitResponse struct {
	Pending bool `json:"pending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) handleSnapshot(c *fiber.Ctx) error {
	snapshot := s.conversationSvc.Snapshot()

	return c.JSON(snapshotResponse{
		Messages: pie.Map(snapshot.Messages, func(msg conversation.Message) messageDTO {
			return messageDTO{
				Role:      string(msg.Role),
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt,
			}
		}),
		Pending: snapshot.Pending,
	})
}

func (s *Service) handleSubmit(c *fiber.Ctx) error {
	var req submitRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid_body"})
	}

	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "empty_input"})
	}

	if _, err := s.conversationSvc.Submit(req.Text); err != nil {
		switch {
		case errors.Is(err, conversation.ErrEmptyInput):
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "empty_input"})
		case errors.Is(err, conversation.ErrInputTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "input_too_long"})
		case errors.Is(err, conversation.ErrAlreadyPending):
			return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: "already_pending"})
		default:
			return oops.Wrapf(err, "failed to submit message")
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(submitResponse{Pending: true})
}

func (s *Service) handleReset(c *fiber.Ctx) error {
	s.conversationSvc.Reset()

	return c.SendStatus(fiber.StatusNoContent)
}

// handleEvents streams one server-sent event per conversation change,
// so the widget knows to re-fetch the snapshot.
func (s *Service) handleEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	updates := s.conversationSvc.Subscribe()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer s.conversationSvc.Unsubscribe(updates)

		for {
			select {
			case <-s.appCtx.Done():
				return
			case _, ok := <-updates:
				if !ok {
					return
				}

				if _, err := fmt.Fprint(w, "event: update\ndata: {}\n\n"); err != nil {
					return
				}

				if err := w.Flush(); err != nil {
					slog.Debug("Event stream client disconnected", "error", err)
					return
				}
			}
		}
	}))

	return nil
}
