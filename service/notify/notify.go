package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Notifier alerts recipients who will not see a message live. The REST
// layer calls it after persisting a reply, for recipients who are offline
// and have not muted the conversation.
type Notifier interface {
	Send(ctx context.Context, text string, recipientIDs []string, data map[string]string) error
}

// OneSignal delivers through the OneSignal REST API, addressing users by
// external user id (our user ids).
type OneSignal struct {
	appID  string
	apiKey string
	url    string
	hc     *http.Client
}

func NewOneSignal(appID, apiKey string) *OneSignal {
	return &OneSignal{
		appID:  appID,
		apiKey: apiKey,
		url:    "https://onesignal.com/api/v1/notifications",
		hc:     &http.Client{Timeout: 10 * time.Second},
	}
}

type oneSignalRequest struct {
	AppID                  string            `json:"app_id"`
	Contents               map[string]string `json:"contents"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Data                   map[string]string `json:"data,omitempty"`
}

func (o *OneSignal) Send(ctx context.Context, text string, recipientIDs []string, data map[string]string) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	body, err := json.Marshal(oneSignalRequest{
		AppID:                  o.appID,
		Contents:               map[string]string{"en": text},
		IncludeExternalUserIDs: recipientIDs,
		Data:                   data,
	})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+o.apiKey)

	resp, err := o.hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "send notification")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return errors.Errorf("onesignal returned %d", resp.StatusCode)
	}
	return nil
}

// Noop drops notifications; used when push credentials are absent.
type Noop struct{}

func (Noop) Send(context.Context, string, []string, map[string]string) error { return nil }
