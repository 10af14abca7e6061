package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// CommandHandler is called when a user command is received and returns the
// reply text. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type getUpdates struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// PollOnce fetches pending updates after offset, answers every command and
// returns the offset to poll from next.
func (t *TelegramNotifier) PollOnce(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	req := getUpdates{Offset: offset, Timeout: t.PollTimeout, AllowedUpdates: []string{"message"}}
	updates, err := call[[]telegramUpdate](ctx, t.client, "getUpdates", req)
	if err != nil {
		return offset, err
	}
	for _, update := range updates {
		offset = update.UpdateID + 1
		if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
			continue
		}
		text := strings.TrimSpace(update.Message.Text)
		chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
		entry := log.WithFields(log.Fields{"chat": chatID, "command": text})
		entry.Info("received command")

		reply := handler(ctx, text)
		if reply == "" {
			continue
		}
		if err := t.SendTo(ctx, chatID, reply); err != nil {
			entry.WithError(err).Error("send reply")
		}
	}
	return offset, nil
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("telegram polling stopped")
			return
		default:
		}

		next, err := t.PollOnce(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("telegram polling stopped")
				return
			}
			log.WithError(err).Warn("polling request failed")
			select {
			case <-ctx.Done():
			case <-time.After(t.RetryDelay):
			}
			continue
		}
		offset = next
	}
}
