package handler

import (
	"log/slog"
	"net/http"

	"github.com/rbhagat/legalease/internal/model"
	"github.com/rbhagat/legalease/internal/store"
)

type AdminHandler struct {
	userStore     *store.UserStore
	contractStore *store.ContractStore
	templateStore *store.TemplateStore
	logger        *slog.Logger
}

func NewAdminHandler(us *store.UserStore, cs *store.ContractStore, ts *store.TemplateStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{userStore: us, contractStore: cs, templateStore: ts, logger: logger}
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type templateUsage struct {
	TemplateID int64  `json:"template_id"`
	Name       string `json:"name"`
	Contracts  int64  `json:"contracts"`
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	userCount, err := h.userStore.Count()
	if err != nil {
		h.logger.Error("count users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	contractCount, err := h.contractStore.Count()
	if err != nil {
		h.logger.Error("count contracts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	usage, err := h.contractStore.TemplateUsage()
	if err != nil {
		h.logger.Error("template usage", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	templates, err := h.templateStore.List()
	if err != nil {
		h.logger.Error("list templates", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	byTemplate := make([]templateUsage, 0, len(templates))
	for _, t := range templates {
		byTemplate = append(byTemplate, templateUsage{
			TemplateID: t.ID,
			Name:       t.Name,
			Contracts:  usage[t.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":          userCount,
		"contracts":      contractCount,
		"template_usage": byTemplate,
	})
}
