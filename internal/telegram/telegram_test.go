package telegram

import (
	"context"
	"testing"

	"tgadmin/pkg/logx"
)

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSendRejectsBadChatID(t *testing.T) {
	t.Parallel()
	c, err := New(Config{Token: "test-token", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Send(context.Background(), "not-a-number", "hi", false); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestSendHonorsCancelledContext(t *testing.T) {
	t.Parallel()
	c, err := New(Config{Token: "test-token", Offline: true}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Send(ctx, "123", "hi", false); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
