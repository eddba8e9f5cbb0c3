package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

const maxSignalsPerRequest = 500

// signalRequest mirrors the OpenAPI schema for one POST /v1/signals item.
type signalRequest struct {
	EventID    string            `json:"event_id"`
	Instrument string            `json:"instrument"`
	ItemID     string            `json:"item_id"`
	Proxy      string            `json:"proxy"`
	Value      any               `json:"value"`
	Context    map[string]string `json:"context"`
	OccurredAt string            `json:"occurred_at"`
}

func (s signalRequest) event(userID string) model.ImplicitEvent {
	e := model.ImplicitEvent{
		EventID:    strings.TrimSpace(s.EventID),
		UserID:     userID,
		Instrument: model.InstrumentCode(strings.ToUpper(strings.TrimSpace(s.Instrument))),
		ItemID:     s.ItemID,
		Proxy:      model.ProxyKind(strings.ToLower(strings.TrimSpace(s.Proxy))),
		Value:      s.Value,
		Context:    s.Context,
	}
	if s.OccurredAt != "" {
		// An unparsable timestamp falls back to receive time.
		if t, err := time.Parse(time.RFC3339Nano, s.OccurredAt); err == nil {
			e.OccurredAt = t
		}
	}
	return e
}

type ackResponse struct {
	Status string `json:"status"`
}

// handlePostSignals accepts one signal or an array of signals. The response
// is always 202: invalid, duplicate and over-limit signals are dropped and
// counted.
func (s *Server) handlePostSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := UserID(ctx)

	reqs, err := readSignals(r)
	if err != nil {
		metrics.RecordSignalDropped("invalid")
		s.log.Debug(ctx, "unreadable signal body", logger.String("user", user), logger.Error(err))
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
		return
	}

	for _, req := range reqs {
		if !s.limiter.Allow(user) {
			metrics.RecordSignalDropped("rate_limited")
			continue
		}
		s.deps.Emit(ctx, req.event(user))
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

func readSignals(r *http.Request) ([]signalRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var batch []signalRequest
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, err
		}
		if len(batch) > maxSignalsPerRequest {
			batch = batch[:maxSignalsPerRequest]
		}
		return batch, nil
	}
	var one signalRequest
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []signalRequest{one}, nil
}
