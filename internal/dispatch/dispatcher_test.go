package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sentCall struct {
	kind   string // "channel" or "direct"
	target string
	text   string
}

type fakeSender struct {
	calls []sentCall
	err   error
}

func (f *fakeSender) SendToChannel(_ context.Context, channelID, text string) error {
	f.calls = append(f.calls, sentCall{"channel", channelID, text})
	return f.err
}

func (f *fakeSender) SendDirect(_ context.Context, userID, text string) error {
	f.calls = append(f.calls, sentCall{"direct", userID, text})
	return f.err
}

func testOrigin() Origin {
	return Origin{
		ChannelID:  "chan1",
		AuthorID:   "user1",
		AuthorName: "alice",
		MessageID:  "msg1",
		Timestamp:  "2026-01-02T03:04:05Z",
	}
}

func TestDispatch_Reply(t *testing.T) {
	sender := &fakeSender{}
	d := New(sender)

	if err := d.Dispatch(context.Background(), Action{Type: ActionReply}, testOrigin(), "hi"); err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(sender.calls))
	}
	if c := sender.calls[0]; c.kind != "channel" || c.target != "chan1" || c.text != "hi" {
		t.Fatalf("unexpected call %+v", c)
	}
}

func TestDispatch_SendDM(t *testing.T) {
	sender := &fakeSender{}
	d := New(sender)

	if err := d.Dispatch(context.Background(), Action{Type: ActionSendDM}, testOrigin(), "psst"); err != nil {
		t.Fatal(err)
	}
	if c := sender.calls[0]; c.kind != "direct" || c.target != "user1" {
		t.Fatalf("unexpected call %+v", c)
	}
}

func TestDispatch_ForwardCarriesContext(t *testing.T) {
	sender := &fakeSender{}
	d := New(sender)

	action := Action{Type: ActionForward, TargetChannel: "mod-log"}
	if err := d.Dispatch(context.Background(), action, testOrigin(), "result"); err != nil {
		t.Fatal(err)
	}
	c := sender.calls[0]
	if c.target != "mod-log" {
		t.Fatalf("target = %q", c.target)
	}
	if !strings.Contains(c.text, "alice") || !strings.Contains(c.text, "chan1") || !strings.Contains(c.text, "result") {
		t.Fatalf("forwarded text lost origin context: %q", c.text)
	}
}

func TestDispatch_Webhook(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
	}))
	defer srv.Close()

	d := New(&fakeSender{})
	action := Action{Type: ActionWebhook, URL: srv.URL}
	if err := d.Dispatch(context.Background(), action, testOrigin(), "out"); err != nil {
		t.Fatal(err)
	}
	if got.Content != "out" || got.Metadata.AuthorID != "user1" || got.Metadata.MessageID != "msg1" {
		t.Fatalf("webhook saw %+v", got)
	}
}

func TestDispatch_WebhookFailureIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(&fakeSender{})
	err := d.Dispatch(context.Background(), Action{Type: ActionWebhook, URL: srv.URL}, testOrigin(), "x")

	var delivErr *DeliveryError
	if !errors.As(err, &delivErr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if delivErr.Action != ActionWebhook {
		t.Fatalf("action = %q", delivErr.Action)
	}
}

func TestDispatch_SenderFailureIsDeliveryError(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("socket closed")}
	d := New(sender)

	err := d.Dispatch(context.Background(), Action{Type: ActionReply}, testOrigin(), "x")
	var delivErr *DeliveryError
	if !errors.As(err, &delivErr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
}
