package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/model"
)

// Subscriptions is the slice of the push store the notifier needs.
type Subscriptions interface {
	List() ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

type sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload Payload) error
}

// Notifier fans a penalty notice out to every subscribed device.
type Notifier struct {
	sender sender
	subs   Subscriptions
	logger *slog.Logger
}

func NewNotifier(svc *Service, subs Subscriptions, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: svc,
		subs:   subs,
		logger: logger.With("component", "push"),
	}
}

// PenaltyPayload renders the verdict announcement for a notice.
func PenaltyPayload(n court.PenaltyNotice) Payload {
	return Payload{
		Title: "🔨 【判決：有罪確定】",
		Body: fmt.Sprintf("%sさん、合計スコアが%dptに達しました！\n執行される罰：%s",
			n.Name, n.Score, n.Punishment),
		URL: "/",
		Tag: "penalty-" + string(n.Partner),
	}
}

// Penalty sends the notice to every subscription and returns how many
// deliveries succeeded. Expired subscriptions are removed. A failure for one
// device does not stop delivery to the others.
func (n *Notifier) Penalty(ctx context.Context, notice court.PenaltyNotice) (int, error) {
	subs, err := n.subs.List()
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	payload := PenaltyPayload(notice)
	sent := 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		err := n.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			n.logger.Info("removing expired subscription", "id", sub.ID)
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "id", sub.ID, "error", err)
			}
		default:
			n.logger.Warn("push failed", "id", sub.ID, "error", err)
		}
	}
	return sent, nil
}
