package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 4 * 1024
)

// HTTPSender отправляет SMS через HTTP шлюз.
//
// Запрос:
//
//	POST <url>
//	Authorization: Bearer <token>
//	{"to": "+1000", "text": "..."}
//
// Любой ответ вне 2xx считается ошибкой отправки.
type HTTPSender struct {
	url    string
	token  string
	client *http.Client
}

// HTTPSenderConfig — конфигурация HTTPSender.
type HTTPSenderConfig struct {
	URL     string
	Token   string        // опционально
	Timeout time.Duration // default: 30s
	Client  *http.Client  // опционально, для тестов
}

// NewHTTPSender создаёт HTTPSender.
func NewHTTPSender(cfg HTTPSenderConfig) (*HTTPSender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("sms gateway url is required")
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPSender{url: cfg.URL, token: cfg.Token, client: client}, nil
}

// sendRequest — тело запроса к шлюзу.
type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send отправляет одно сообщение.
func (s *HTTPSender) Send(ctx context.Context, phone, text string) error {
	if err := validate(phone, text); err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{To: phone, Text: text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GatewayError — шлюз ответил статусом вне 2xx.
type GatewayError struct {
	StatusCode int
	Body       string
}

// Error реализует интерфейс error.
func (e *GatewayError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sms gateway: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("sms gateway: HTTP %d: %s", e.StatusCode, e.Body)
}
