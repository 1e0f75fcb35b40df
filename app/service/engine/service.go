package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"parley/app/config"
	"parley/app/service/conversation"
	"parley/app/service/responder"

	"github.com/samber/do"
)

// Service drives the asynchronous half of the conversation: it picks
// up each accepted submission, waits the simulated latency, generates
// a reply and resolves the pending handle.
type Service struct {
	cfg             *config.Config
	conversationSvc *conversation.Service
	responder       responder.Responder
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:             do.MustInvoke[*config.Config](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		responder:       do.MustInvoke[responder.Responder](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pending, ok := <-s.conversationSvc.PendingChannel():
			if !ok {
				return
			}

			s.handle(ctx, pending)
		}
	}
}

func (s *Service) handle(ctx context.Context, pending conversation.Pending) {
	delay := s.replyDelay()

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	start := time.Now()

	replyText, err := s.responder.Generate(ctx, pending.Utterance)
	if err != nil {
		// resolve with the fallback so the conversation never stays
		// stuck awaiting a reply
		slog.Error("Failed to generate reply",
			"utterance", pending.Utterance,
			"error", err,
		)
		replyText = s.cfg.Chat.FallbackReply
	}

	if err := s.conversationSvc.Resolve(pending, replyText); err != nil {
		if errors.Is(err, conversation.ErrStaleHandle) {
			slog.Warn("Dropping reply for stale submission", "id", pending.ID)
			return
		}

		slog.Error("Failed to resolve reply", "id", pending.ID, "error", err)
		return
	}

	slog.Info("Replied to message",
		"utterance", pending.Utterance,
		"delay", delay,
		"duration", time.Since(start),
	)
}

func (s *Service) replyDelay() time.Duration {
	minDelay := time.Duration(s.cfg.Chat.MinReplyDelayMs) * time.Millisecond
	maxDelay := time.Duration(s.cfg.Chat.MaxReplyDelayMs) * time.Millisecond

	if maxDelay <= minDelay {
		return minDelay
	}

	return minDelay + rand.N(maxDelay-minDelay)
}
