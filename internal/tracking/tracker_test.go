package tracking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestTracker(url string) *Tracker {
	tr := NewTracker(url, zap.NewNop())
	tr.baseDelay = time.Millisecond
	return tr
}

func TestTrack_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var got Visit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	tr := newTestTracker(srv.URL)
	tr.Track(Visit{Page: "/packs", Country: "TN"})
	tr.Wait()

	assert.Equal(t, int32(3), calls.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/packs", got.Page)
	assert.NotEmpty(t, got.Date)
}

func TestTrack_GivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestTracker(srv.URL)
	tr.Track(Visit{Page: "/"})
	tr.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestTrack_NoEndpoint(t *testing.T) {
	tr := NewTracker("", zap.NewNop())
	tr.Track(Visit{Page: "/"})
	tr.Wait()
}
