package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/finance-chat/internal/domain"
)

const telegramTimeout = 10 * time.Second

// TelegramSink delivers replies through the Telegram Bot API sendMessage call.
type TelegramSink struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

// NewTelegramSink creates a TelegramSink. apiBase defaults to the public Bot API.
func NewTelegramSink(apiBase, token string) *TelegramSink {
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &TelegramSink{
		apiBase:    strings.TrimRight(apiBase, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: telegramTimeout},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send posts the reply text to the reply's chat.
func (s *TelegramSink) Send(ctx context.Context, reply domain.ChatResponse) error {
	if reply.ChatID == "" {
		return fmt.Errorf("TelegramSink.Send: chat id is required")
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: reply.ChatID, Text: reply.Message})
	if err != nil {
		return fmt.Errorf("TelegramSink.Send: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("TelegramSink.Send: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("TelegramSink.Send: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var tr telegramResponse
	_ = json.Unmarshal(raw, &tr)

	if resp.StatusCode != http.StatusOK || !tr.OK {
		desc := tr.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("TelegramSink.Send: status %d: %s", resp.StatusCode, desc)
	}
	return nil
}
