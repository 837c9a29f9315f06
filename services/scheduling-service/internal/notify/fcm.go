package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	otelx "github.com/md-rashed-zaman/agenda/libs/otel"
	"google.golang.org/api/option"
)

type pushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes in-app events to the owner's devices subscribed to a topic.
type FCMNotifier struct {
	client pushClient
	topic  string
	logger *slog.Logger
}

func NewFCMNotifier(ctx context.Context, credentialsFile string, topic string, logger *slog.Logger) (*FCMNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMNotifier{client: client, topic: strings.TrimSpace(topic), logger: logger}, nil
}

func (f *FCMNotifier) Emit(ctx context.Context, ev Event) {
	data := map[string]string{"type": string(ev.Type)}
	for k, v := range ev.Attributes {
		data[k] = v
	}
	if len(ev.EventIDs) > 0 {
		data["event_ids"] = strings.Join(ev.EventIDs, ",")
	}
	if tp, _ := otelx.TraceContextStrings(ctx); tp != "" {
		data["traceparent"] = tp
	}
	msg := &messaging.Message{
		Topic: f.topic,
		Notification: &messaging.Notification{
			Title: ev.Title,
			Body:  ev.Message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := f.client.Send(ctx, msg); err != nil {
		f.logger.Warn("push notification failed", "err", err, "type", ev.Type)
	}
}
