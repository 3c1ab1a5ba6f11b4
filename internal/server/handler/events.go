package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// Event log read-back defaults. Count is capped so one request cannot drain
// the whole stream.
const (
	defaultEventCount = 100
	maxEventCount     = 1000
)

// EventsHandler serves cursor-based replay of the durable event log.
type EventsHandler struct {
	log    domain.EventLog
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler with the given log and logger.
func NewEventsHandler(log domain.EventLog, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		log:    log,
		logger: logger,
	}
}

// eventEntry is one replayed event. Payload is the envelope the ledger
// emitted, passed through verbatim.
type eventEntry struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// eventsResponse wraps the replayed entries. NextAfter is the cursor to pass
// as ?after= on the next request; empty when nothing was returned.
type eventsResponse struct {
	Events    []eventEntry `json:"events"`
	NextAfter string       `json:"next_after,omitempty"`
}

// List replays events appended after the ?after= cursor, oldest first.
// GET /api/events?after=0&count=100
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}

	count := defaultEventCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		if n > maxEventCount {
			n = maxEventCount
		}
		count = n
	}

	messages, err := h.log.StreamRead(r.Context(), domain.EventStream, after, count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: read events failed",
			slog.String("after", after),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	resp := eventsResponse{Events: make([]eventEntry, 0, len(messages))}
	for _, m := range messages {
		resp.Events = append(resp.Events, eventEntry{ID: m.ID, Payload: m.Payload})
	}
	if len(messages) > 0 {
		resp.NextAfter = messages[len(messages)-1].ID
	}

	writeJSON(w, http.StatusOK, resp)
}
