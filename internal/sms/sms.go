// Package sms отправляет SMS-сообщения лидам.
//
// Реализации Sender:
//   - LogSender  — только пишет сообщение в лог (режим по умолчанию)
//   - HTTPSender — отправляет через HTTP шлюз (SMS_GATEWAY_URL)
package sms

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrEmptyPhone — не указан номер получателя.
	ErrEmptyPhone = errors.New("empty phone")

	// ErrEmptyText — пустой текст сообщения.
	ErrEmptyText = errors.New("empty text")
)

// Sender — эффект отправки SMS.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// LogSender логирует сообщение вместо отправки.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender создаёт LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send пишет сообщение в лог на уровне debug.
func (s *LogSender) Send(ctx context.Context, phone, text string) error {
	if err := validate(phone, text); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "send sms", "phone", phone, "text", text)
	return nil
}

// New выбирает реализацию: HTTPSender, если задан url шлюза,
// иначе LogSender.
func New(cfg HTTPSenderConfig, logger *slog.Logger) (Sender, error) {
	if cfg.URL == "" {
		return NewLogSender(logger), nil
	}
	return NewHTTPSender(cfg)
}

func validate(phone, text string) error {
	if phone == "" {
		return ErrEmptyPhone
	}
	if text == "" {
		return ErrEmptyText
	}
	return nil
}
