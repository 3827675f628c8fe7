package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cometweb/webaudit/internal/analyzer"
)

type legacyAnalyzeRequest struct {
	URL string `json:"url"`
}

// legacyAnalyzeHandler serves POST /api/analyze-url with the original
// contract: a bare JSON body, 400 when the url is missing or malformed, and
// plain-text 500s prefixed "Error analyzing URL: " for any pipeline failure.
// The router rejects non-POST methods with 405 before this handler runs.
func legacyAnalyzeHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req legacyAnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			http.Error(w, "Missing 'url' in request body", http.StatusBadRequest)
			return
		}

		result, err := svc.Analyze(r.Context(), req.URL, "")
		if err != nil {
			var coded *analyzer.CodedError
			if errors.As(err, &coded) && coded.Code == analyzer.CodeValidation {
				http.Error(w, coded.Message, http.StatusBadRequest)
				return
			}
			http.Error(w, "Error analyzing URL: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			slog.Debug("legacy analyze response write failed", "error", err)
		}
	}
}
