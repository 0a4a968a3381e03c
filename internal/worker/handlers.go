package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Leadflow/internal/mq"
)

// handleFollowupSend обрабатывает сообщение из очереди followups.send.
// nil означает ack, mq.ErrReject — DLQ, прочие ошибки — requeue.
func (w *Worker) handleFollowupSend(ctx context.Context, delivery *mq.Delivery) error {
	if delivery.Message.Type != mq.MessageTypeFollowupSend {
		return fmt.Errorf("%w: unexpected message type %q", mq.ErrReject, delivery.Message.Type)
	}

	payload, err := mq.ParsePayload[mq.FollowupSendPayload](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: %w", mq.ErrReject, err)
	}

	// Запись follow-up создаётся до отправки: отмена на остановке воркера
	// оставила бы запись без SMS. Отправку ограничивает SendTimeout.
	err = w.sender.SendFollowup(context.WithoutCancel(ctx), payload.LeadID, payload.RuleID)
	switch {
	case err == nil:
		return nil

	case errors.Is(err, ErrLeadNotFound), errors.Is(err, ErrRuleNotFound):
		// Лид или правило удалены после скана, отправлять некому
		w.logger.Warn("followup target not found, dropping message",
			"message_id", delivery.Message.ID,
			"lead_id", payload.LeadID,
			"rule_id", payload.RuleID,
			"error", err,
		)
		return nil

	case errors.Is(err, ErrSendFailed):
		// Запись follow-up уже создана, повтор будет отсечён дедупликацией
		return nil

	default:
		return err
	}
}
