package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/academyportal/internal/conversation"
	"github.com/academyportal/internal/model"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "short"},
		{"line one\nline  two", "line one line two"},
		{strings.Repeat("a", 50), strings.Repeat("a", 39) + "…"},
	}
	for _, tt := range tests {
		if got := preview(tt.in); got != tt.want {
			t.Errorf("preview(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName(""); got != model.UnknownName {
		t.Errorf("displayName(\"\") = %q", got)
	}
	if got := displayName("Parent Bo"); got != "Parent Bo" {
		t.Errorf("displayName = %q", got)
	}
}

func TestWhen(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)
	if got := when(now.Add(-time.Hour), now); got != "17:00" {
		t.Errorf("same day = %q, want 17:00", got)
	}
	if got := when(now.AddDate(0, 0, -1), now); got != "2026-03-09 18:00" {
		t.Errorf("other day = %q", got)
	}
}

func TestFormatMessage(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)
	in := conversation.ThreadMessage{Message: model.Message{ID: 1, SenderName: "Coach Anna", Content: "hi", SentAt: now}}
	if got := formatMessage(in, now); got != "[18:00] Coach Anna: hi" {
		t.Errorf("incoming = %q", got)
	}
	mine := conversation.ThreadMessage{Message: model.Message{ID: 2, Content: "ok", SentAt: now, Read: true}, Mine: true}
	if got := formatMessage(mine, now); got != "[18:00] me: ok ✓" {
		t.Errorf("mine = %q", got)
	}
}

func TestThreadPrinter_PrintsOnlyNew(t *testing.T) {
	var buf bytes.Buffer
	p := newThreadPrinter(&buf)
	first := conversation.Thread{PartnerID: 3, Messages: []conversation.ThreadMessage{
		{Message: model.Message{ID: 1, SenderName: "Coach Anna", Content: "one"}},
	}}
	p.ThreadUpdated(first)
	select {
	case <-p.ready:
	default:
		t.Fatal("ready should be closed after first update")
	}
	second := first
	second.Messages = append(append([]conversation.ThreadMessage(nil), first.Messages...),
		conversation.ThreadMessage{Message: model.Message{ID: 2, SenderName: "Coach Anna", Content: "two"}})
	p.ThreadUpdated(second)

	out := buf.String()
	if strings.Count(out, "one") != 1 || strings.Count(out, "two") != 1 {
		t.Errorf("output = %q, each message should be printed once", out)
	}
}

func TestWriteDirectory_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeDirectory(&buf, nil, time.Now())
	if !strings.Contains(buf.String(), "No conversations yet") {
		t.Errorf("output = %q", buf.String())
	}
}
