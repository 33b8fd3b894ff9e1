package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"subtrack-api/internal/models"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookDirectorySyncSignsAndRetries(t *testing.T) {
	var calls atomic.Int32
	received := make(chan DirectoryPayload, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, signPayload(body, "shh"), r.Header.Get("X-SubTrack-Signature"))

		var p DirectoryPayload
		assert.NoError(t, json.Unmarshal(body, &p))
		received <- p
	}))
	defer srv.Close()

	sync := NewDirectorySync(srv.URL, "shh").(*WebhookDirectorySync)
	sync.retryDelays = []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}

	user := &models.User{BaseModel: models.BaseModel{ID: 7}, Email: "jane@example.com", Role: models.RolePortal, IsActive: true}
	sync.SyncUser(DirectoryEventUserCreated, user)

	select {
	case p := <-received:
		assert.Equal(t, DirectoryEventUserCreated, p.Event)
		assert.Equal(t, uint(7), p.UserID)
		assert.Equal(t, "jane@example.com", p.Email)
	case <-time.After(2 * time.Second):
		t.Fatal("directory webhook was not delivered")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewDirectorySyncWithoutURLIsNoop(t *testing.T) {
	sync := NewDirectorySync("", "")
	_, ok := sync.(noopDirectorySync)
	require.True(t, ok)
	sync.SyncUser(DirectoryEventUserCreated, &models.User{})
}
