package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/internal/protocol"
)

type Handler struct {
	svc    protocol.Service
	logger *slog.Logger
}

func NewHandler(svc protocol.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/get_desktops", h.get(h.handleGetDesktops))
	mux.HandleFunc("/curr_desktop", h.get(h.handleCurrDesktop))
	mux.HandleFunc("/time_on", h.get(h.handleTimeOn))
	mux.HandleFunc("/time_all", h.get(h.handleTimeAll))
	mux.HandleFunc("/reset", h.handleReset)

	mux.HandleFunc("/healthz", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleGetDesktops(w http.ResponseWriter, r *http.Request) {
	h.execute(w, protocol.Request{Verb: protocol.GetDesktops})
}

func (h *Handler) handleCurrDesktop(w http.ResponseWriter, r *http.Request) {
	h.execute(w, protocol.Request{Verb: protocol.CurrDesktop})
}

func (h *Handler) handleTimeOn(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.execute(w, protocol.Request{
		Verb: protocol.TimeOn,
		Name: query.Get("name"),
		GUID: query.Get("guid"),
	})
}

func (h *Handler) handleTimeAll(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		var active uuid.UUID
		if cur, err := h.svc.CurrentDesktop(); err == nil {
			active = cur.Desktop.ID
		}
		h.respondTimesHTML(w, h.svc.TimeAll(), active)
		return
	}
	h.execute(w, protocol.Request{Verb: protocol.TimeAll})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := protocol.Execute(h.svc, protocol.Request{Verb: protocol.Reset}); err != nil {
		h.respondError(w, err)
		return
	}
	respondText(w, protocol.Ack)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondText(w, "ok")
}

func (h *Handler) execute(w http.ResponseWriter, req protocol.Request) {
	result, err := protocol.Execute(h.svc, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := protocol.Status(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	respondJSON(w, status, protocol.ErrorReply{Error: err.Error()})
}

func respondText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(body))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(status)
	w.Write(body)
}
