// Package dispatch delivers processor results back to the platform: reply in
// channel, DM the author, forward to another channel, or POST to a webhook.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ActionType enumerates the delivery variants.
type ActionType string

const (
	ActionReply   ActionType = "reply"
	ActionSendDM  ActionType = "send_dm"
	ActionForward ActionType = "forward"
	ActionWebhook ActionType = "webhook"
)

// Action is a validated delivery configuration. TargetChannel is set for
// forward actions, URL for webhook actions.
type Action struct {
	Type          ActionType
	TargetChannel string
	URL           string
}

// Sender delivers outbound text to the chat platform.
type Sender interface {
	SendToChannel(ctx context.Context, channelID, text string) error
	SendDirect(ctx context.Context, userID, text string) error
}

// Origin identifies the message a result is being delivered for.
type Origin struct {
	ChannelID  string
	AuthorID   string
	AuthorName string
	MessageID  string
	Timestamp  string
}

// DeliveryError is a failure to hand a result to the platform or webhook,
// as opposed to a failure producing the result.
type DeliveryError struct {
	Action ActionType
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Action, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type webhookPayload struct {
	Content  string          `json:"content"`
	Metadata webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	AuthorName string `json:"author_name"`
	AuthorID   string `json:"author_id"`
	ChannelID  string `json:"channel_id"`
	MessageID  string `json:"message_id"`
	Timestamp  string `json:"timestamp"`
}

// Dispatcher maps actions to sender or webhook calls.
type Dispatcher struct {
	sender Sender
	client *http.Client
}

func New(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender, client: &http.Client{}}
}

// Dispatch performs exactly one delivery for the action. Any failure is
// returned as a *DeliveryError.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, origin Origin, text string) error {
	var err error
	switch action.Type {
	case ActionReply:
		err = d.sender.SendToChannel(ctx, origin.ChannelID, text)
	case ActionSendDM:
		err = d.sender.SendDirect(ctx, origin.AuthorID, text)
	case ActionForward:
		// Prefix with the origin so the forwarded result stays traceable.
		forwarded := fmt.Sprintf("[from %s in <#%s>]\n%s", origin.AuthorName, origin.ChannelID, text)
		err = d.sender.SendToChannel(ctx, action.TargetChannel, forwarded)
	case ActionWebhook:
		err = d.postWebhook(ctx, action.URL, origin, text)
	default:
		err = fmt.Errorf("unknown action type %q", action.Type)
	}
	if err != nil {
		return &DeliveryError{Action: action.Type, Err: err}
	}
	return nil
}

func (d *Dispatcher) postWebhook(ctx context.Context, url string, origin Origin, text string) error {
	payload, err := json.Marshal(webhookPayload{
		Content: text,
		Metadata: webhookMetadata{
			AuthorName: origin.AuthorName,
			AuthorID:   origin.AuthorID,
			ChannelID:  origin.ChannelID,
			MessageID:  origin.MessageID,
			Timestamp:  origin.Timestamp,
		},
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
