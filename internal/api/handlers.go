package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tezos-reporter/internal/errors"
	"github.com/tezos-reporter/internal/logging"
	"github.com/tezos-reporter/internal/types"
)

// reportRequest is the POST /api/reports body
type reportRequest struct {
	Addresses []string `json:"addresses"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
}

// handleCreateReport handles POST /api/reports - compute a full activity report
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errors.CodeInvalidParameter, "Invalid request body", nil)
		return
	}

	window, err := parseWindow(req.Start, req.End)
	if err != nil {
		respondCategorized(w, r, err)
		return
	}

	report, err := s.engine.Generate(r.Context(), req.Addresses, window)
	if err != nil {
		respondCategorized(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleExport handles GET /api/reports/export/{type} - download one CSV table.
// Query parameters: addresses (comma separated), start, end (RFC3339).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := types.ExportKind(vars["type"])

	query := r.URL.Query()
	tokens := splitTokens(query.Get("addresses"))

	window, err := parseWindow(query.Get("start"), query.Get("end"))
	if err != nil {
		respondCategorized(w, r, err)
		return
	}

	data, filename, err := s.engine.Export(r.Context(), kind, tokens, window)
	if err != nil {
		respondCategorized(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// parseWindow parses and validates the RFC3339 window bounds
func parseWindow(start, end string) (types.ReportWindow, error) {
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return types.ReportWindow{}, errors.NewInvalidParameterError("start", "must be an RFC3339 timestamp")
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return types.ReportWindow{}, errors.NewInvalidParameterError("end", "must be an RFC3339 timestamp")
	}

	window := types.ReportWindow{Start: startTime.UTC(), End: endTime.UTC()}
	if !window.Valid() {
		return types.ReportWindow{}, errors.NewInvalidWindowError("start must be before end")
	}
	return window, nil
}

// splitTokens splits a comma-separated address list, dropping empty entries
func splitTokens(raw string) []string {
	var tokens []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// respondCategorized maps an engine error onto the wire format
func respondCategorized(w http.ResponseWriter, r *http.Request, err error) {
	catErr := errors.Categorize(err)
	if !errors.IsUserError(catErr) {
		logging.FromContext(r.Context()).WithError(err).Error("Report request failed")
	}
	respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
}
