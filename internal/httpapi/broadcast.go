package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tgadmin/internal/broadcast"
	"tgadmin/internal/storage"
	"tgadmin/pkg/logx"
)

type broadcastRequest struct {
	Message         string   `json:"message"`
	RecipientType   string   `json:"recipientType"`
	SpecificUserIDs []string `json:"specificUserIds,omitempty"`
	IncludeMarkdown bool     `json:"includeMarkdown,omitempty"`
}

type progressRecord struct {
	Progress int `json:"progress"`
	Sent     int `json:"sent"`
	Total    int `json:"total"`
}

type resultRecord struct {
	Results resultBody `json:"results"`
}

type resultBody struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// broadcastHandler serves POST /api/broadcast. Validation and resolution
// failures come back as a single JSON error before any byte of the
// stream; after that the response is newline-delimited JSON, one record
// per delivery attempt, closed by one results record.
func (a *App) broadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	breq := broadcast.Request{
		Message: req.Message,
		Selector: broadcast.Selector{
			Type:        broadcast.RecipientType(req.RecipientType),
			SpecificIDs: req.SpecificUserIDs,
		},
		Markdown: req.IncludeMarkdown,
	}

	events, err := a.Dispatcher.Run(r.Context(), breq)
	if err != nil {
		switch {
		case errors.Is(err, broadcast.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, broadcast.ErrDirectoryUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			a.Log.Error("broadcast start failed", logx.Err(err))
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	started := time.Now()
	var final *broadcast.Result
	for ev := range events {
		switch ev.Kind {
		case broadcast.EventProgress:
			_ = enc.Encode(progressRecord{
				Progress: ev.Progress.Percent,
				Sent:     ev.Progress.Sent,
				Total:    ev.Progress.Total,
			})
		case broadcast.EventResult:
			final = ev.Result
			_ = enc.Encode(resultRecord{Results: resultBody{
				Total:   ev.Result.Total,
				Success: ev.Result.Success,
				Failed:  ev.Result.Failed,
				Errors:  ev.Result.Errors,
			}})
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if final == nil {
		// Consumer went away mid-broadcast; nobody is listening, so
		// there is nothing to report and nothing worth recording.
		a.Log.Debug("broadcast stream interrupted", logx.String("type", req.RecipientType))
		return
	}

	// Record the completed broadcast. The request context may already be
	// done by the time the stream is drained, so use a fresh one.
	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.Store.AppendMessageLog(logCtx, storage.MessageLog{
		Message:         req.Message,
		RecipientType:   req.RecipientType,
		TotalRecipients: final.Total,
		SuccessCount:    final.Success,
		FailedCount:     final.Failed,
		Status:          storage.MessageStatusCompleted,
		CreatedAt:       started,
		CompletedAt:     time.Now(),
	}); err != nil {
		a.Log.Warn("message log append failed", logx.Err(err))
	}
}
