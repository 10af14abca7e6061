package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAPIBase is the Telegram Bot API host.
	DefaultAPIBase = "https://api.telegram.org"

	// MaxMessageLength is the Telegram limit for one message text.
	MaxMessageLength = 4096
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	ChatID string

	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	// RetryDelay is the pause after a failed poll.
	RetryDelay time.Duration

	client *resty.Client
}

// Option configures a TelegramNotifier.
type Option func(*TelegramNotifier)

// WithAPIBase points the client at another Bot API host.
func WithAPIBase(base string) Option {
	return func(t *TelegramNotifier) {
		t.client.SetBaseURL(strings.TrimRight(base, "/"))
	}
}

// WithProxy routes requests through proxyURL. Empty means direct.
func WithProxy(proxyURL string) Option {
	return func(t *TelegramNotifier) {
		if proxyURL != "" {
			t.client.SetProxy(proxyURL)
		}
	}
}

// NewTelegramNotifier creates a notifier for botToken that sends to chatID
// by default.
func NewTelegramNotifier(botToken, chatID string, opts ...Option) *TelegramNotifier {
	t := &TelegramNotifier{
		ChatID:      chatID,
		Backoff:     time.Second,
		PollTimeout: 30,
		RetryDelay:  5 * time.Second,
		client: resty.New().
			SetBaseURL(DefaultAPIBase).
			SetTimeout(40*time.Second).
			SetPathParam("token", botToken),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// apiResponse is the envelope of every Bot API answer.
type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

// call invokes a Bot API method and decodes its result.
func call[T any](ctx context.Context, c *resty.Client, method string, body any) (T, error) {
	var out apiResponse[T]
	resp, err := c.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/bot{token}/" + method)
	if err != nil {
		return out.Result, fmt.Errorf("telegram %s: %w", method, err)
	}
	if resp.IsError() || !out.OK {
		return out.Result, fmt.Errorf("telegram API error: status %d, method %s: %s", resp.StatusCode(), method, out.Description)
	}
	return out.Result, nil
}

type sendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.SendTo(ctx, t.ChatID, text)
}

// SendTo sends an HTML message to chatID. Texts longer than the Telegram
// limit go out as several messages split on line breaks.
func (t *TelegramNotifier) SendTo(ctx context.Context, chatID, text string) error {
	for _, part := range SplitMessage(text, MaxMessageLength) {
		msg := sendMessage{ChatID: chatID, Text: part, ParseMode: "HTML", DisableWebPagePreview: true}
		if _, err := call[struct{}](ctx, t.client, "sendMessage", msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff << uint(i)
		log.WithFields(log.Fields{
			"attempt": i + 1,
			"of":      maxRetries + 1,
			"backoff": backoff,
		}).WithError(err).Warn("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// tagReserve is left free in every chunk of an HTML message for the tags
// closed and reopened around a cut.
const tagReserve = 64

// SplitMessage cuts text into chunks of at most limit bytes, preferring line
// boundaries. A line longer than limit is cut on a rune boundary outside any
// tag or entity. HTML elements still open at a cut are closed at the end of
// the chunk and reopened at the start of the next one.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	budget := limit
	markup := strings.ContainsAny(text, "<&")
	if markup && limit > 2*tagReserve {
		budget = limit - tagReserve
	}
	var (
		parts []string
		b     strings.Builder
	)
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > budget {
			flush()
			cut := safeCut(line, budget)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if b.Len()+len(line) > budget {
			flush()
		}
		b.WriteString(line)
	}
	flush()
	if markup {
		return balanceTags(parts)
	}
	return parts
}

// safeCut returns the largest cut point <= limit in s (len(s) > limit) that
// does not split a rune, a tag or a short entity.
func safeCut(s string, limit int) int {
	i := limit
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	head := s[:i]
	if lt := strings.LastIndexByte(head, '<'); lt > strings.LastIndexByte(head, '>') {
		i = lt
	} else if amp := strings.LastIndexByte(head, '&'); amp > strings.LastIndexByte(head, ';') && i-amp <= 10 {
		i = amp
	}
	if i == 0 {
		// Nothing safe before limit: take the whole first rune run.
		i = limit
		for i < len(s) && !utf8.RuneStart(s[i]) {
			i++
		}
	}
	return i
}

type openTag struct {
	name string
	raw  string
}

func balanceTags(parts []string) []string {
	var open []openTag
	out := make([]string, len(parts))
	for i, p := range parts {
		var b strings.Builder
		for _, t := range open {
			b.WriteString(t.raw)
		}
		b.WriteString(p)
		open = trackTags(open, p)
		for j := len(open) - 1; j >= 0; j-- {
			b.WriteString("</" + open[j].name + ">")
		}
		out[i] = b.String()
	}
	return out
}

// trackTags updates the stack of open elements with the tags found in s.
func trackTags(open []openTag, s string) []openTag {
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			return open
		}
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			return open
		}
		raw := s[lt : lt+gt+1]
		s = s[lt+gt+1:]
		name, _, _ := strings.Cut(strings.Trim(raw, "</> "), " ")
		name = strings.ToLower(name)
		switch {
		case name == "":
		case strings.HasPrefix(raw, "</"):
			for j := len(open) - 1; j >= 0; j-- {
				if open[j].name == name {
					open = open[:j]
					break
				}
			}
		default:
			open = append(open, openTag{name: name, raw: raw})
		}
	}
}
