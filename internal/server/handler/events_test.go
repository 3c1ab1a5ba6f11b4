package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// stubEventLog returns canned messages and records the last cursor.
type stubEventLog struct {
	messages  []domain.StreamMessage
	err       error
	lastAfter string
	lastCount int
}

func (s *stubEventLog) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	s.lastAfter = lastID
	s.lastCount = count
	return s.messages, s.err
}

func newEventsMux(log domain.EventLog) *http.ServeMux {
	h := NewEventsHandler(log, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", h.List)
	return mux
}

func TestEventsReplay(t *testing.T) {
	log := &stubEventLog{
		messages: []domain.StreamMessage{
			{ID: "1-0", Payload: []byte(`{"type":"new_listing"}`)},
			{ID: "2-0", Payload: []byte(`{"type":"listing_paid"}`)},
		},
	}
	mux := newEventsMux(log)

	rec := doJSON(t, mux, http.MethodGet, "/api/events", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", log.lastAfter)
	assert.Equal(t, defaultEventCount, log.lastCount)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "1-0", resp.Events[0].ID)
	assert.JSONEq(t, `{"type":"new_listing"}`, string(resp.Events[0].Payload))
	assert.Equal(t, "2-0", resp.NextAfter)
}

func TestEventsCursorAndCount(t *testing.T) {
	log := &stubEventLog{}
	mux := newEventsMux(log)

	rec := doJSON(t, mux, http.MethodGet, "/api/events?after=2-0&count=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2-0", log.lastAfter)
	assert.Equal(t, 5, log.lastCount)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Events)
	assert.Empty(t, resp.NextAfter)
}

func TestEventsCountCapped(t *testing.T) {
	log := &stubEventLog{}
	mux := newEventsMux(log)

	rec := doJSON(t, mux, http.MethodGet, "/api/events?count=999999", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxEventCount, log.lastCount)
}

func TestEventsRejectsBadCount(t *testing.T) {
	mux := newEventsMux(&stubEventLog{})

	for _, v := range []string{"0", "-1", "ten"} {
		rec := doJSON(t, mux, http.MethodGet, "/api/events?count="+v, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestEventsReadFailure(t *testing.T) {
	mux := newEventsMux(&stubEventLog{err: fmt.Errorf("redis down")})

	rec := doJSON(t, mux, http.MethodGet, "/api/events", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
