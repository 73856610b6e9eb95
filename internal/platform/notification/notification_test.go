package notification

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "clinic@example.com"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"}); err == nil {
		t.Error("expected error for missing from")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "clinic@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cfg.Timeout != 15*time.Second {
		t.Errorf("expected default timeout 15s, got %v", s.cfg.Timeout)
	}
}

func TestBuildMessage(t *testing.T) {
	m := buildMessage("clinic@example.com", "dana@example.com", "Invoice 1001", "<p>hello</p>")
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"From: clinic@example.com", "To: dana@example.com", "Subject: Invoice 1001", "text/html", "<p>hello</p>"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}

func TestSMTPSender_ContextCancelled(t *testing.T) {
	s, _ := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "clinic@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendEmail(ctx, "dana@example.com", "s", "b"); err == nil {
		t.Error("expected error when relay is unreachable or context is done")
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))
	if err := s.SendEmail(context.Background(), "dana@example.com", "Invoice", "<p/>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "dana@example.com") {
		t.Errorf("expected recipient in log, got %s", buf.String())
	}
}

func TestMockEmailSender(t *testing.T) {
	m := &MockEmailSender{}
	_ = m.SendEmail(context.Background(), "a@example.com", "s", "b")
	if len(m.Calls()) != 1 {
		t.Fatalf("expected 1 call, got %d", len(m.Calls()))
	}
	m.ShouldFail = true
	m.FailError = "boom"
	if err := m.SendEmail(context.Background(), "a@example.com", "s", "b"); err == nil || err.Error() != "boom" {
		t.Errorf("expected boom, got %v", err)
	}
}
