package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/edutok-api/internal/application/push"
)

// Notifier publishes push messages to platform endpoints.
type Notifier struct {
	api API
}

func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

type gcmNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Tag         string `json:"tag,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
}

type gcmPayload struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	CollapseKey  string            `json:"collapse_key,omitempty"`
}

// Payload renders msg as an SNS message with per-protocol bodies.
func Payload(msg push.Message) (string, error) {
	gcm, err := json.Marshal(gcmPayload{
		Notification: gcmNotification{
			Title:       msg.Title,
			Body:        msg.Body,
			Tag:         msg.Tag,
			ClickAction: msg.Link,
		},
		Data:        msg.Data,
		CollapseKey: msg.Tag,
	})
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(map[string]string{
		"default": msg.Body,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (n *Notifier) Notify(ctx context.Context, token string, msg push.Message) error {
	if n.api == nil {
		return errors.New("sns not configured")
	}
	body, err := Payload(msg)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	_, err = n.api.Publish(ctx, &awssns.PublishInput{
		TargetArn:        aws.String(token),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
