package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/rbhagat/legalease/internal/auth"
	"github.com/rbhagat/legalease/internal/model"
	"github.com/rbhagat/legalease/internal/store"
)

type ContractHandler struct {
	contractStore *store.ContractStore
	templateStore *store.TemplateStore
	logger        *slog.Logger
}

func NewContractHandler(cs *store.ContractStore, ts *store.TemplateStore, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{contractStore: cs, templateStore: ts, logger: logger}
}

type contractRequest struct {
	TemplateID int64             `json:"template_id"`
	Title      string            `json:"title"`
	Fields     map[string]string `json:"fields"`
}

// renderContract fills a template body with the submitted field values.
// Missing fields are an error so a half-filled document never gets stored.
func renderContract(tmpl *model.Template, fields map[string]string) (string, error) {
	t, err := template.New(tmpl.Name).Option("missingkey=error").Parse(tmpl.Body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, fields); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	tmpl, err := h.templateStore.GetByID(req.TemplateID)
	if err != nil {
		h.logger.Error("get template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if tmpl == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown template"})
		return
	}

	content, err := renderContract(tmpl, req.Fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid template fields"})
		return
	}

	fieldsJSON, err := json.Marshal(req.Fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fields"})
		return
	}

	contract, err := h.contractStore.Create(auth.UserID(r.Context()), tmpl.ID, req.Title, string(fieldsJSON), content)
	if err != nil {
		h.logger.Error("create contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, contract)
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.contractStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list contracts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if contracts == nil {
		contracts = []model.Contract{}
	}
	writeJSON(w, http.StatusOK, contracts)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	contract, err := h.contractStore.GetForUser(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if contract == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contract not found"})
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.contractStore.GetForUser(id, userID)
	if err != nil {
		h.logger.Error("get contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contract not found"})
		return
	}

	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	tmpl, err := h.templateStore.GetByID(existing.TemplateID)
	if err != nil || tmpl == nil {
		h.logger.Error("get template for update", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	content, err := renderContract(tmpl, req.Fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid template fields"})
		return
	}

	fieldsJSON, err := json.Marshal(req.Fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fields"})
		return
	}

	contract, err := h.contractStore.Update(id, userID, req.Title, string(fieldsJSON), content)
	if err != nil {
		h.logger.Error("update contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.contractStore.GetForUser(id, userID)
	if err != nil {
		h.logger.Error("get contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "contract not found"})
		return
	}

	if err := h.contractStore.Delete(id, userID); err != nil {
		h.logger.Error("delete contract", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
