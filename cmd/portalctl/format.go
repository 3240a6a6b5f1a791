package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/academyportal/internal/conversation"
	"github.com/academyportal/internal/model"
)

const previewRunes = 40

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return model.UnknownName
	}
	return name
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes-1]) + "…"
}

// when — время сообщения: сегодня только часы, иначе дата.
func when(t, now time.Time) string {
	t = t.Local()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Local().Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	return t.Format("2006-01-02 15:04")
}

func writeDirectory(w io.Writer, dir []model.ConversationSummary, now time.Time) {
	if len(dir) == 0 {
		fmt.Fprintln(w, "No conversations yet. Find someone with 'portalctl recipients'.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tUNREAD\tLAST MESSAGE\tWHEN")
	for _, s := range dir {
		unread := ""
		if s.UnreadCount > 0 {
			unread = fmt.Sprintf("%d", s.UnreadCount)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.PartnerID, s.PartnerName, s.PartnerRole, unread, preview(s.LastMessageContent), when(s.LastMessageTime, now))
	}
	_ = tw.Flush()
}

func writeRecipients(w io.Writer, list []model.Recipient) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No matching recipients.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, displayName(r.Name), r.Role)
	}
	_ = tw.Flush()
}

func formatMessage(m conversation.ThreadMessage, now time.Time) string {
	who := displayName(m.SenderName)
	status := ""
	if m.Mine {
		who = "me"
		if m.Read {
			status = " ✓"
		}
	}
	return fmt.Sprintf("[%s] %s: %s%s", when(m.SentAt, now), who, m.Content, status)
}

// threadPrinter печатает переписку: при первой загрузке целиком, дальше только новые сообщения.
type threadPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[int64]bool
	ready   chan struct{}
	once    sync.Once
	lastErr error
}

func newThreadPrinter(w io.Writer) *threadPrinter {
	return &threadPrinter{w: w, printed: make(map[int64]bool), ready: make(chan struct{})}
}

func (p *threadPrinter) ThreadUpdated(t conversation.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if len(p.printed) == 0 && len(t.Messages) == 0 {
		fmt.Fprintln(p.w, "No messages yet. Say hello!")
	}
	for _, m := range t.Messages {
		if p.printed[m.ID] {
			continue
		}
		p.printed[m.ID] = true
		fmt.Fprintln(p.w, formatMessage(m, now))
	}
	p.lastErr = nil
	p.once.Do(func() { close(p.ready) })
}

func (p *threadPrinter) ThreadFailed(partnerID int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "! could not refresh conversation with %d: %v\n", partnerID, err)
	p.lastErr = err
	p.once.Do(func() { close(p.ready) })
}

// printf пишет в тот же поток под тем же мьютексом, что и обновления переписки.
func (p *threadPrinter) printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, a...)
}

func (p *threadPrinter) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
