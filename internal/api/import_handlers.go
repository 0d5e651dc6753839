package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/core"
	"localagent.ro/sme-agent/internal/store"
)

type ImportRequest struct {
	Action string                 `json:"action"`
	Data   []core.FinancialRecord `json:"data"`
	Year   int                    `json:"year"`
	CUI    string                 `json:"cui"`
}

// ImportHandler multiplexes the admin import actions: batch-insert upserts a
// slice of raw records, get-stats aggregates the dataset, check-cui answers
// "is this company an SME".
func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Corp de cerere invalid")
		return
	}

	switch req.Action {
	case "batch-insert":
		h.handleBatchInsert(w, r, req)
	case "get-stats":
		h.handleGetStats(w, r)
	case "check-cui":
		h.handleCheckCUI(w, r, req.CUI)
	default:
		writeJSONError(w, http.StatusBadRequest, "Acțiune necunoscută")
	}
}

func (h *APIHandler) handleBatchInsert(w http.ResponseWriter, r *http.Request, req ImportRequest) {
	if len(req.Data) == 0 {
		writeJSONError(w, http.StatusBadRequest, "Date invalide")
		return
	}

	year := req.Year
	if year == 0 {
		year = time.Now().Year()
	}

	companies := make([]store.Company, 0, len(req.Data))
	for _, rec := range req.Data {
		if rec.CUI == "" {
			continue
		}
		companies = append(companies, core.BuildCompany(rec, nil, year))
	}

	count, err := h.registry.UpsertCompanies(r.Context(), companies)
	if err != nil {
		h.logger.Error("batch insert failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
	})
}

func (h *APIHandler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) handleCheckCUI(w http.ResponseWriter, r *http.Request, cui string) {
	if cui == "" {
		writeJSONError(w, http.StatusBadRequest, "CUI lipsă")
		return
	}

	company, err := h.registry.GetCompanyByCUI(r.Context(), cui)
	if err != nil {
		h.logger.Error("cui lookup failed", zap.String("cui", cui), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"found":  company != nil,
		"is_sme": company != nil && company.IsSME,
	}
	if company != nil {
		resp["company"] = company
	}
	writeJSON(w, http.StatusOK, resp)
}
