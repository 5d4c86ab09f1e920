package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rbhagat/legalease/internal/rag"
)

// maxChatBody bounds the request body relayed to the AI service.
const maxChatBody = 64 << 10

type RagHandler struct {
	client *rag.Client
	logger *slog.Logger
}

func NewRagHandler(client *rag.Client, logger *slog.Logger) *RagHandler {
	return &RagHandler{client: client, logger: logger}
}

// Chat forwards the request body to the AI service and relays its JSON
// response, status included. The only local processing is mapping an
// unreachable or garbled upstream to a bad-gateway error.
func (h *RagHandler) Chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	status, resp, err := h.client.Chat(r.Context(), body)
	if err != nil {
		h.badUpstream(w, err)
		return
	}
	writeRaw(w, status, resp)
}

func (h *RagHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	status, resp, err := h.client.Search(r.Context(), query, limit)
	if err != nil {
		h.badUpstream(w, err)
		return
	}
	writeRaw(w, status, resp)
}

// Document relays a case-document lookup by id.
func (h *RagHandler) Document(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("doc_id")
	if docID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	status, resp, err := h.client.Document(r.Context(), docID)
	if err != nil {
		h.badUpstream(w, err)
		return
	}
	writeRaw(w, status, resp)
}

func (h *RagHandler) badUpstream(w http.ResponseWriter, err error) {
	if errors.Is(err, rag.ErrUnavailable) {
		h.logger.Warn("ai service unavailable", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ai service unavailable"})
		return
	}
	h.logger.Error("ai proxy", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
