package http

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/catfactsnode/catfacts/internal/application"
	"github.com/catfactsnode/catfacts/internal/domain"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// noApprovedFallback is served from /fact when nothing is approved yet, so
// consumers always get the same payload shape.
const noApprovedFallback = "No approved cat facts found in the database."

type Handler struct {
	service *application.FactService

	// inviteLink backs /discord and the form's outbound link; empty disables both.
	inviteLink string
	// adminHash is the bcrypt hash guarding /api; empty disables the API.
	adminHash string
}

type Config struct {
	InviteLink        string
	AdminPasswordHash string
}

func NewRouter(service *application.FactService, cfg Config) http.Handler {
	h := &Handler{service: service, inviteLink: cfg.InviteLink, adminHash: cfg.AdminPasswordHash}
	r := chi.NewRouter()

	r.Get("/", h.handleForm)
	r.Post("/submit", h.handleSubmit)
	r.Get("/fact", h.handleRandomFact)
	r.Get("/discord", h.handleInviteRedirect)

	r.Route("/api", func(api chi.Router) {
		api.Use(h.requireAdmin)
		api.Get("/facts", h.handleAPIListFacts)
		api.Get("/stats", h.handleAPIStats)
		api.Post("/facts/{id}/approve", h.handleAPIApprove)
		api.Post("/facts/{id}/deny", h.handleAPIDeny)
	})

	return r
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, "index.html", map[string]any{"InviteLink": h.inviteLink})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(r.Form.Get("fact"))
	author := strings.TrimSpace(r.Form.Get("author"))
	if text == "" {
		http.Error(w, "fact is required", http.StatusBadRequest)
		return
	}

	_, err := h.service.SubmitWeb(r.Context(), text, author, clientAddress(r))
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		h.renderResult(w, http.StatusTooManyRequests, "#f55", "ERR: RATE_LIMIT_EXCEEDED. TRY_LATER.")
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		h.renderResult(w, http.StatusOK, "#5f5", "ACK: SUBMISSION_RECEIVED.")
	}
}

func (h *Handler) handleRandomFact(w http.ResponseWriter, r *http.Request) {
	fact, err := h.service.RandomApproved(r.Context())
	text := noApprovedFallback
	switch {
	case err == nil:
		text = fact.Text
	case !errors.Is(err, domain.ErrNoFacts):
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": []string{text}})
}

func (h *Handler) handleInviteRedirect(w http.ResponseWriter, r *http.Request) {
	if h.inviteLink == "" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.inviteLink, http.StatusFound)
}

type factPayload struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) handleAPIListFacts(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	facts, err := h.service.ListFacts(r.Context(), status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	payload := make([]factPayload, 0, len(facts))
	for _, f := range facts {
		payload = append(payload, factPayload{
			ID:        f.ID,
			Text:      f.Text,
			Author:    f.Author,
			Status:    string(f.Status),
			Timestamp: f.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": payload})
}

func (h *Handler) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleAPIApprove flips a voting fact to approved. Unlike the moderation
// button, the API path announces nothing: the bot session lives in another
// process.
func (h *Handler) handleAPIApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := factIDParam(w, r)
	if !ok {
		return
	}
	fact, err := h.service.Approve(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrAlreadyDecided):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "fact is not awaiting review"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"id": fact.ID, "status": string(fact.Status)})
	}
}

func (h *Handler) handleAPIDeny(w http.ResponseWriter, r *http.Request) {
	id, ok := factIDParam(w, r)
	if !ok {
		return
	}
	err := h.service.Deny(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrAlreadyDecided):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "fact is not awaiting review"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
	}
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminHash == "" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "admin api disabled"})
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte("admin")) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(h.adminHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="catfacts"`)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func factIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "fact id must be a positive number"})
		return 0, false
	}
	return uint(parsed), true
}

// clientAddress is the rate-limit key: the remote host without the port.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) renderResult(w http.ResponseWriter, status int, color, message string) {
	h.renderPage(w, status, "result.html", map[string]string{"Color": color, "Message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
