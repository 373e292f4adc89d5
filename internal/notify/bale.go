package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// BaleSender delivers notifications via the Bale messenger bot API. Bale's
// bot API mirrors Telegram's sendMessage shape.
type BaleSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewBaleSender creates a BaleSender for the given bot token and chat ID. It
// uses a default HTTP client with a 10-second timeout.
func NewBaleSender(token, chatID string) *BaleSender {
	return &BaleSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a message to the configured Bale chat. The title is rendered in
// bold using HTML parse mode.
func (b *BaleSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://web.bale.ai/bot%s/sendMessage", b.token)

	payload := map[string]any{
		"chat_id":                  b.chatID,
		"text":                     fmt.Sprintf("<b>%s</b>\n%s", title, message),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	return postJSON(ctx, b.client, "bale", url, payload)
}

// Name returns the sender identifier.
func (b *BaleSender) Name() string {
	return "bale"
}
