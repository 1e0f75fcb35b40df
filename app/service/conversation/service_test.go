package conversation_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"parley/app/config"
	"parley/app/service/conversation"
)

func newTestService() *conversation.Service {
	return conversation.NewWithClock(config.Default(), func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})
}

func TestSeededGreeting(t *testing.T) {
	svc := newTestService()

	snapshot := svc.Snapshot()
	if len(snapshot.Messages) != 1 {
		t.Fatalf("expected 1 seeded message, got %d", len(snapshot.Messages))
	}
	if snapshot.Messages[0].Role != conversation.RoleAssistant {
		t.Fatalf("expected assistant greeting, got role %q", snapshot.Messages[0].Role)
	}
	if snapshot.Messages[0].Content != config.Default().Chat.Greeting {
		t.Fatalf("unexpected greeting content: %q", snapshot.Messages[0].Content)
	}
	if snapshot.Pending {
		t.Fatalf("fresh conversation should not be pending")
	}
}

func TestSubmitResolveLifecycle(t *testing.T) {
	svc := newTestService()

	handle, err := svc.Submit("  hello  ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if handle.Utterance != "hello" {
		t.Fatalf("expected trimmed utterance, got %q", handle.Utterance)
	}

	snapshot := svc.Snapshot()
	if !snapshot.Pending {
		t.Fatalf("expected pending after submit")
	}
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected 2 messages after submit, got %d", len(snapshot.Messages))
	}
	if snapshot.Messages[1].Role != conversation.RoleUser || snapshot.Messages[1].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", snapshot.Messages[1])
	}

	if err := svc.Resolve(handle, "hi!"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	snapshot = svc.Snapshot()
	if snapshot.Pending {
		t.Fatalf("expected idle after resolve")
	}
	if len(snapshot.Messages) != 3 {
		t.Fatalf("expected 3 messages after resolve, got %d", len(snapshot.Messages))
	}
	if snapshot.Messages[2].Role != conversation.RoleAssistant || snapshot.Messages[2].Content != "hi!" {
		t.Fatalf("unexpected assistant message: %+v", snapshot.Messages[2])
	}
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	svc := newTestService()
	before := svc.Snapshot()

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Submit(text); !errors.Is(err, conversation.ErrEmptyInput) {
			t.Fatalf("Submit(%q): expected ErrEmptyInput, got %v", text, err)
		}
	}

	after := svc.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected submissions must not change state")
	}
}

func TestSubmitRejectsTooLongInput(t *testing.T) {
	svc := newTestService()

	text := strings.Repeat("a", config.Default().Chat.MaxInputLength+1)
	if _, err := svc.Submit(text); !errors.Is(err, conversation.ErrInputTooLong) {
		t.Fatalf("expected ErrInputTooLong, got %v", err)
	}

	if snapshot := svc.Snapshot(); len(snapshot.Messages) != 1 || snapshot.Pending {
		t.Fatalf("rejected submission must not change state: %+v", snapshot)
	}
}

func TestSubmitRejectsWhilePending(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Submit("first"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	before := svc.Snapshot()

	if _, err := svc.Submit("second"); !errors.Is(err, conversation.ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}

	after := svc.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected submission must not change state")
	}
}

func TestResolveStaleHandle(t *testing.T) {
	svc := newTestService()

	handle, err := svc.Submit("question")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := svc.Resolve(handle, "answer"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// second resolution of the same handle
	if err := svc.Resolve(handle, "answer again"); !errors.Is(err, conversation.ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}

	if snapshot := svc.Snapshot(); len(snapshot.Messages) != 3 {
		t.Fatalf("stale resolution must not append, got %d messages", len(snapshot.Messages))
	}
}

func TestResolveWrongHandle(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Submit("question"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	bogus := conversation.Pending{ID: 999, Utterance: "question"}
	if err := svc.Resolve(bogus, "answer"); !errors.Is(err, conversation.ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}

	if snapshot := svc.Snapshot(); !snapshot.Pending {
		t.Fatalf("wrong handle must not clear the pending flag")
	}
}

func TestResetStalesOutstandingHandle(t *testing.T) {
	svc := newTestService()

	handle, err := svc.Submit("will be discarded")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	svc.Reset()

	snapshot := svc.Snapshot()
	if len(snapshot.Messages) != 1 || snapshot.Pending {
		t.Fatalf("reset must restore the initial state: %+v", snapshot)
	}

	if err := svc.Resolve(handle, "too late"); !errors.Is(err, conversation.ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle after reset, got %v", err)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	svc := newTestService()

	first := svc.Snapshot()
	second := svc.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots without intervening mutation must be equal")
	}

	first.Messages[0].Content = "tampered"
	if svc.Snapshot().Messages[0].Content == "tampered" {
		t.Fatalf("mutating a snapshot must not affect the store")
	}
}

func TestPendingChannelYieldsSubmission(t *testing.T) {
	svc := newTestService()

	handle, err := svc.Submit("ping")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case pending := <-svc.PendingChannel():
		if pending != handle {
			t.Fatalf("expected %+v from pending channel, got %+v", handle, pending)
		}
	case <-time.After(time.Second):
		t.Fatalf("no submission on pending channel")
	}
}

func TestSubscribeReceivesTicks(t *testing.T) {
	svc := newTestService()
	updates := svc.Subscribe()

	handle, err := svc.Submit("hello")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	expectTick(t, updates, "submit")

	if err := svc.Resolve(handle, "hi!"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	expectTick(t, updates, "resolve")

	svc.Unsubscribe(updates)

	svc.Reset()
	select {
	case <-updates:
		t.Fatalf("unsubscribed channel must not receive ticks")
	default:
	}
}

func expectTick(t *testing.T, updates <-chan struct{}, op string) {
	t.Helper()

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatalf("no notification after %s", op)
	}
}
