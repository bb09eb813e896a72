package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"tgadmin/internal/storage"
)

type userResponse struct {
	ID           string `json:"id"`
	TelegramID   string `json:"telegram_id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsActive     bool   `json:"is_active"`
	LastActivity string `json:"last_activity"`
	CreatedAt    string `json:"created_at"`
	TotalCoins   int64  `json:"total_coins"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

// listUsersHandler serves GET /api/users?page=&limit=&search=.
// Without a limit the whole directory is returned, matching the
// dashboard's "show everything" default.
func (a *App) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.UserFilter{Search: q.Get("search")}

	var page storage.Page
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		page.Limit = limit
		if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 1 {
			page.Offset = (p - 1) * limit
		}
	}

	total, err := a.Store.CountUsers(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	users, err := a.Store.ListUsers(r.Context(), filter, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}

	now := time.Now()
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:           strconv.FormatInt(u.ID, 10),
			TelegramID:   u.TelegramID,
			Username:     u.Username,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			IsActive:     now.Sub(u.LastActivity) <= a.ActiveWindow,
			LastActivity: u.LastActivity.UTC().Format(time.RFC3339),
			CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
			TotalCoins:   u.TotalCoins,
		})
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Users: out, Total: total})
}

type statsResponse struct {
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	InactiveUsers int `json:"inactiveUsers"`
	MessagesSent  int `json:"messagesSent"`
}

// statsHandler serves GET /api/stats. Inactive is total minus active so
// the two always partition the directory, whatever "now" each count saw.
func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	total, err := a.Store.CountUsers(r.Context(), storage.UserFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	active, err := a.Store.CountUsers(r.Context(), storage.UserFilter{ActiveWithin: a.ActiveWindow})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	sent, err := a.Store.CountMessageLogs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:    total,
		ActiveUsers:   active,
		InactiveUsers: total - active,
		MessagesSent:  sent,
	})
}

type messageLogResponse struct {
	ID              string `json:"id"`
	Message         string `json:"message"`
	RecipientType   string `json:"recipient_type"`
	TotalRecipients int    `json:"total_recipients"`
	SuccessCount    int    `json:"success_count"`
	FailedCount     int    `json:"failed_count"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

const historyLimit = 50

func (a *App) messageHistoryHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := a.Store.ListMessageLogs(r.Context(), historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch message history")
		return
	}
	out := make([]messageLogResponse, 0, len(logs))
	for _, m := range logs {
		e := messageLogResponse{
			ID:              strconv.FormatInt(m.ID, 10),
			Message:         m.Message,
			RecipientType:   m.RecipientType,
			TotalRecipients: m.TotalRecipients,
			SuccessCount:    m.SuccessCount,
			FailedCount:     m.FailedCount,
			Status:          m.Status,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !m.CompletedAt.IsZero() {
			e.CompletedAt = m.CompletedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}
