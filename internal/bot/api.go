package bot

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/service"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type EntryResponse struct {
	ID       int64   `json:"id"`
	Kind     string  `json:"kind"`
	Text     string  `json:"text"`
	At       string  `json:"at"`
	Repeat   string  `json:"repeat,omitempty"`
	RRule    *string `json:"rrule,omitempty"`
	Relative string  `json:"relative"`
}

// SetupAPI registers API routes with Basic Auth
func (b *Bot) SetupAPI(mux *http.ServeMux) {
	if b.cfg.APIUsername == "" || b.cfg.APIPassword == "" {
		return // API disabled if no credentials
	}

	mux.HandleFunc("/api/reminders", b.basicAuth(b.apiEntries(domain.KindReminder)))
	mux.HandleFunc("/api/tasks", b.basicAuth(b.apiEntries(domain.KindTask)))
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="RemindBot API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// GET /api/reminders?user_id=N - reminders of a user
// GET /api/tasks?user_id=N - open tasks of a user
func (b *Bot) apiEntries(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			b.jsonError(w, "user_id is required", http.StatusBadRequest)
			return
		}

		reminders, tasks, err := b.reminders.List(userID)
		if err != nil {
			b.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		entries := reminders
		if kind == domain.KindTask {
			entries = tasks
		}

		b.jsonResponse(w, b.entriesToResponse(entries, b.profiles.Location(userID)))
	}
}

func (b *Bot) entriesToResponse(entries []domain.Entry, loc *time.Location) []EntryResponse {
	now := b.now()
	result := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := EntryResponse{
			ID:       e.ID,
			Kind:     string(e.Kind),
			Text:     e.Text,
			At:       e.At.In(loc).Format(time.RFC3339),
			Repeat:   string(e.RepeatType),
			Relative: service.RelativeHint(e.At, now),
		}
		if rule := service.RRule(e.RepeatType); rule != "" {
			resp.RRule = &rule
		}
		result = append(result, resp)
	}
	return result
}
