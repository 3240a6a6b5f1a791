package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/academyportal/internal/conversation"
	"github.com/spf13/cobra"
)

// firstLoadTimeout — сколько ждать первой загрузки переписки.
const firstLoadTimeout = 30 * time.Second

func parsePartner(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid partner id %q", s)
	}
	return id, nil
}

// openThread открывает переписку и ждёт первого результата опроса.
func openThread(ctx context.Context, e *env, partnerID int64, p *threadPrinter) (*conversation.Inbox, error) {
	in, err := e.openInbox(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := in.Select(partnerID); err != nil {
		in.Close()
		return nil, err
	}
	select {
	case <-p.ready:
	case <-ctx.Done():
		in.Close()
		return nil, ctx.Err()
	case <-time.After(firstLoadTimeout):
		in.Close()
		return nil, fmt.Errorf("timed out loading conversation with %d", partnerID)
	}
	return in, nil
}

func newThreadCmd(opts *globalOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "thread <partnerId>",
		Short: "Show the conversation with one person",
		Long:  "Prints the conversation and marks incoming messages read. With --watch keeps polling for new messages until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parsePartner(args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := newThreadPrinter(cmd.OutOrStdout())
			in, err := openThread(ctx, e, partnerID, p)
			if err != nil {
				return err
			}
			defer in.Close()
			if !watch {
				return p.err()
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling for new messages")
	return cmd
}

func newSendCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <partnerId> <text...>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parsePartner(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if strings.TrimSpace(text) == "" {
				return conversation.ErrEmptyContent
			}
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			in, err := e.openInbox(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer in.Close()
			if err := in.Select(partnerID); err != nil {
				return err
			}
			m, err := in.Send(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to %d\n", m.ID, partnerID)
			return nil
		},
	}
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <partnerId>",
		Short: "Interactive conversation",
		Long:  "Opens the conversation, prints new messages as they arrive and sends every line you type. Type /quit to leave.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parsePartner(args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := newThreadPrinter(cmd.OutOrStdout())
			in, err := openThread(ctx, e, partnerID, p)
			if err != nil {
				return err
			}
			defer in.Close()
			p.printf("-- %s with %d. /quit to leave --\n", displayName(in.Viewer().Name), partnerID)
			return chatLoop(ctx, in, p, bufio.NewScanner(cmd.InOrStdin()))
		},
	}
}

func chatLoop(ctx context.Context, in *conversation.Inbox, p *threadPrinter, sc *bufio.Scanner) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return sc.Err()
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return nil
			case "/refresh":
				in.Refresh()
				continue
			}
			_, err := in.Send(ctx, line)
			var se *conversation.SendError
			switch {
			case errors.Is(err, conversation.ErrEmptyContent):
			case errors.As(err, &se):
				p.printf("! not sent (%v). Your text: %s\n", se.Err, line)
			case err != nil:
				return err
			}
		}
	}
}
