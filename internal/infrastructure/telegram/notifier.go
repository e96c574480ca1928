package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

// Options configures the bot connection. APIEndpoint and Client are optional.
type Options struct {
	BotToken    string
	ChatID      string
	APIEndpoint string
	Client      *http.Client
	Location    *time.Location
}

// Notifier sends run summaries to a Telegram chat via the bot API.
type Notifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	location *time.Location
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot and resolves the chat identifier.
func NewNotifier(opts Options) (*Notifier, error) {
	if opts.BotToken == "" || opts.ChatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(opts.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat id %q: %w", opts.ChatID, err)
	}

	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	api, err := tgbotapi.NewBotAPIWithClient(opts.BotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect bot: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{api: api, chatID: chatID, location: loc}, nil
}

// PublishSummary posts a plain-text run summary.
func (n *Notifier) PublishSummary(ctx context.Context, summary domain.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary, n.location))
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

// FormatSummary renders the run counters as a short message.
func FormatSummary(summary domain.RunSummary, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reset tracker run %s\n", summary.RunID)
	fmt.Fprintf(&b, "Started: %s (%s)\n", summary.StartedAt.In(loc).Format("2006-01-02 15:04"), summary.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Locations: %d", summary.Locations)
	if len(summary.FailedLocations) > 0 {
		fmt.Fprintf(&b, " (failed: %s)", strings.Join(summary.FailedLocations, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Posts: %d found, %d accepted, %d skipped, %d classified\n",
		summary.Candidates, summary.Accepted, summary.Skipped, summary.Classified)
	fmt.Fprintf(&b, "Statuses: %d replaced, %d unchanged, %d failed", summary.Replaced, summary.Unchanged, summary.Failed)
	return b.String()
}
