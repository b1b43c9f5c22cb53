// Package notify sends best-effort push notifications through the Expo push
// API. Dispatch never returns an error to its caller: a failed or skipped
// push must not fail the message send that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"socialchat/internal/domain"
	"socialchat/internal/metrics"
)

const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// pushMessage is the Expo push API request body.
type pushMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Dispatcher struct {
	users    domain.UserRepository
	client   *http.Client
	endpoint string
}

func NewDispatcher(users domain.UserRepository, endpoint string) *Dispatcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Dispatcher{
		users:    users,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
	}
}

// isExpoPushToken mirrors the token shape the Expo SDK accepts.
func isExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// Dispatch looks up the user's push token and sends one notification. A
// missing or malformed token is a silent no-op; transport failures are
// logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, title, body string, data map[string]string) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("notify: get user %d: %v", userID, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	if user.PushToken == nil || !isExpoPushToken(*user.PushToken) {
		log.Printf("notify: user %d has no valid push token", userID)
		metrics.NotificationsDispatched.WithLabelValues("skipped").Inc()
		return
	}

	payload, err := json.Marshal([]pushMessage{{
		To:    *user.PushToken,
		Sound: "default",
		Title: title,
		Body:  body,
		Data:  data,
	}})
	if err != nil {
		log.Printf("notify: marshal push for %d: %v", userID, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Printf("notify: build push request for %d: %v", userID, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("notify: push to user %d: %v", userID, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("notify: push to user %d: status %d", userID, resp.StatusCode)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
}
