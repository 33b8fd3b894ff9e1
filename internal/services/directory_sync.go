package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"
	"time"
)

const (
	DirectoryEventUserCreated     = "user.created"
	DirectoryEventPasswordChanged = "user.password_changed"
	DirectoryEventUserUpdated     = "user.updated"
)

// DirectorySync mirrors account changes to an external user directory.
// Implementations must return immediately; delivery happens in the background.
type DirectorySync interface {
	SyncUser(event string, user *models.User)
}

type noopDirectorySync struct{}

func (noopDirectorySync) SyncUser(string, *models.User) {}

// WebhookDirectorySync posts signed account events to the directory's webhook
type WebhookDirectorySync struct {
	url         string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewDirectorySync returns a no-op sync when url is empty
func NewDirectorySync(url, secret string) DirectorySync {
	if url == "" {
		return noopDirectorySync{}
	}
	return &WebhookDirectorySync{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// DirectoryPayload is the body sent to the directory
type DirectoryPayload struct {
	Event        string      `json:"event"`
	UserID       uint        `json:"user_id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	Role         models.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	PasswordHash string      `json:"password_hash"` // bcrypt
	Timestamp    string      `json:"timestamp"`     // RFC 3339
}

// SyncUser snapshots user and delivers it in a goroutine
func (d *WebhookDirectorySync) SyncUser(event string, user *models.User) {
	payload := DirectoryPayload{
		Event:        event,
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Role:         user.Role,
		IsActive:     user.IsActive,
		PasswordHash: user.HashedPassword,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	go d.sendWithRetry(payload)
}

// sendWithRetry makes one attempt per configured delay, waiting between them
func (d *WebhookDirectorySync) sendWithRetry(payload DirectoryPayload) {
	maxRetries := len(d.retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := d.send(payload)
		if err == nil {
			logging.Infof("Directory sync sent - event: %s, user: %d, attempt: %d",
				payload.Event, payload.UserID, attempt+1)
			return
		}

		logging.Errorf("Directory sync failed - event: %s, user: %d, attempt: %d, error: %v",
			payload.Event, payload.UserID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(d.retryDelays[attempt])
		}
	}

	logging.Errorf("Directory sync gave up after %d attempts - event: %s, user: %d",
		maxRetries, payload.Event, payload.UserID)
}

func (d *WebhookDirectorySync) send(payload DirectoryPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SubTrack-Directory/1.0")
	if d.secret != "" {
		req.Header.Set("X-SubTrack-Signature", signPayload(body, d.secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// signPayload is the hex HMAC-SHA256 of body
func signPayload(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
