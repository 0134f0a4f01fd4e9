package sink

import (
	"context"
	"fmt"
	"log"

	"github.com/go-telegram/bot"

	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

// Telegram pushes alert open/close notifications to a chat. Delivery is
// best-effort; a failed send is logged and dropped.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

func NewTelegram(b *bot.Bot, chatID int64) *Telegram {
	return &Telegram{bot: b, chatID: chatID}
}

func (t *Telegram) Publish(ctx context.Context, _ snapshot.Snapshot, events []monitor.Event) {
	for _, ev := range events {
		var msg string
		switch ev.Kind {
		case monitor.EventAlertOpened:
			msg = formatDownMessage(ev)
		case monitor.EventAlertClosed:
			msg = formatUpMessage(ev)
		default:
			continue
		}

		if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: t.chatID,
			Text:   msg,
		}); err != nil {
			log.Printf("telegram: send failed for %s: %v", ev.URL, err)
		}
	}
}

func formatDownMessage(ev monitor.Event) string {
	statusLine := "Status: "
	switch {
	case ev.StatusCode == 0 && ev.Reason != "":
		statusLine += ev.Reason
	case ev.StatusCode == 0:
		statusLine += "no response"
	case ev.StatusCode >= 500:
		statusLine += fmt.Sprintf("HTTP %d (server error)", ev.StatusCode)
	default:
		statusLine += fmt.Sprintf("HTTP %d", ev.StatusCode)
	}

	return fmt.Sprintf("🚨 DOWN: %s\n%s\nConsecutive failures: %d\nAt: %s",
		ev.URL,
		statusLine,
		ev.ConsecutiveFailures,
		ev.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}

func formatUpMessage(ev monitor.Event) string {
	return fmt.Sprintf("✅ UP: %s\nDowntime: %.0fs\nAt: %s",
		ev.URL,
		ev.Downtime.Seconds(),
		ev.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}
