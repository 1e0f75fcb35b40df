package conversation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"parley/app/config"

	"github.com/samber/do"
)

const subscriberBufferSize = 8

var _ do.Shutdownable = (*Service)(nil)

// Service owns the conversation history and the submit/resolve state
// machine. At most one submission may be awaiting its reply; while it
// is, further submissions are rejected with ErrAlreadyPending.
type Service struct {
	cfg *config.Config
	now func() time.Time

	mu          sync.RWMutex
	history     []Message
	status      Status
	pendingID   uint64
	seq         uint64
	pendingCh   chan Pending
	subscribers []chan struct{}
}

func New(di *do.Injector) (*Service, error) {
	return NewWithClock(do.MustInvoke[*config.Config](di), time.Now), nil
}

// NewWithClock exists so tests can pin timestamps.
func NewWithClock(cfg *config.Config, now func() time.Time) *Service {
	s := &Service{
		cfg: cfg,
		now: now,
		// capacity 1 is enough: a second submission is rejected until
		// the first one resolves
		pendingCh: make(chan Pending, 1),
		status:    StatusIdle,
	}

	s.history = append(s.history, s.greeting())

	return s
}

func (s *Service) greeting() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   s.cfg.Chat.Greeting,
		CreatedAt: s.now(),
	}
}

// Submit validates text and appends it as a user message, leaving the
// conversation awaiting a reply. The returned handle must be passed
// back to Resolve once a reply has been generated.
func (s *Service) Submit(text string) (Pending, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Pending{}, fmt.Errorf("rejecting submission: %w", ErrEmptyInput)
	}

	if len([]rune(trimmed)) > s.cfg.Chat.MaxInputLength {
		return Pending{}, fmt.Errorf("rejecting submission of %d characters: %w",
			len([]rune(trimmed)), ErrInputTooLong)
	}

	s.mu.Lock()

	if s.status == StatusAwaiting {
		s.mu.Unlock()
		return Pending{}, fmt.Errorf("rejecting submission: %w", ErrAlreadyPending)
	}

	s.history = append(s.history, Message{
		Role:      RoleUser,
		Content:   trimmed,
		CreatedAt: s.now(),
	})
	s.status = StatusAwaiting
	s.seq++
	s.pendingID = s.seq

	pending := Pending{
		ID:        s.pendingID,
		Utterance: trimmed,
	}

	s.mu.Unlock()

	s.enqueue(pending)
	s.notify()

	return pending, nil
}

func (s *Service) enqueue(pending Pending) {
	defer func() {
		// the channel is closed during shutdown
		_ = recover()
	}()

	for {
		select {
		case s.pendingCh <- pending:
			return
		default:
			// displace a submission nothing consumed, its handle is
			// stale by now
			select {
			case <-s.pendingCh:
			default:
			}
		}
	}
}

// Resolve appends the reply for the given handle and returns the
// conversation to idle.
func (s *Service) Resolve(handle Pending, replyText string) error {
	s.mu.Lock()

	if s.status != StatusAwaiting || handle.ID != s.pendingID {
		s.mu.Unlock()
		return fmt.Errorf("resolving handle %d: %w", handle.ID, ErrStaleHandle)
	}

	s.history = append(s.history, Message{
		Role:      RoleAssistant,
		Content:   replyText,
		CreatedAt: s.now(),
	})
	s.status = StatusIdle

	s.mu.Unlock()

	s.notify()

	return nil
}

// Reset clears the conversation back to the seeded greeting. Any
// outstanding handle becomes stale.
func (s *Service) Reset() {
	s.mu.Lock()

	s.history = []Message{s.greeting()}
	s.status = StatusIdle
	s.pendingID = 0

	// drain a submission the dispatcher has not picked up yet
	select {
	case <-s.pendingCh:
	default:
	}

	s.mu.Unlock()

	s.notify()
}

// Snapshot returns a copy of the history and the pending flag. The
// copy is detached: mutating it cannot affect the store.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]Message, len(s.history))
	copy(messages, s.history)

	return Snapshot{
		Messages: messages,
		Pending:  s.status == StatusAwaiting,
	}
}

// PendingChannel yields each accepted submission exactly once, for the
// dispatcher that generates and feeds back replies.
func (s *Service) PendingChannel() <-chan Pending {
	return s.pendingCh
}

// Subscribe registers a listener that receives a tick on every state
// change, so a rendering layer knows to re-fetch the snapshot.
func (s *Service) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, subscriberBufferSize)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *Service) Unsubscribe(ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

func (s *Service) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			slog.Warn("subscriber channel is full, dropping notification")
		}
	}
}

func (s *Service) Shutdown() error {
	close(s.pendingCh)

	return nil
}
