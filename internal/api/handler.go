package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/law-makers/adscout/internal/reqctx"
	"github.com/law-makers/adscout/internal/sender"
	"github.com/law-makers/adscout/pkg/models"
	"github.com/rs/zerolog"
)

// Importer applies a validated batch to the catalog
type Importer interface {
	Import(ctx context.Context, p models.ImportPayload) (*models.ImportResponse, error)
}

// ImportHandler serves POST /api/facebook-ads/import
type ImportHandler struct {
	importer Importer
	secret   string
	maxBody  int64
	logger   zerolog.Logger
}

// NewImportHandler returns a handler that only accepts requests carrying secret.
// An empty secret rejects every request.
func NewImportHandler(importer Importer, secret string, maxBody int64, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, secret: secret, maxBody: maxBody, logger: logger}
}

func (h *ImportHandler) authorized(r *http.Request) bool {
	got := r.Header.Get(sender.SecretHeader)
	if h.secret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With().Str("request_id", reqctx.ID(ctx)).Logger()

	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload"})
		return
	}

	payload, verr, ok := decodePayload(body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload"})
		return
	}
	if verr == nil {
		verr = Validate(&payload)
	}
	if verr != nil {
		logger.Warn().Err(verr).Msg("Rejected import payload")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr})
		return
	}

	resp, err := h.importer.Import(ctx, payload)
	if err != nil {
		logger.Error().Err(reqctx.NewRequestError(ctx, err)).Str("niche", payload.Niche).Msg("Import failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	failed := 0
	for _, res := range resp.Results {
		if res.Status == "error" {
			failed++
		}
	}
	logger.Info().
		Str("niche", payload.Niche).
		Int("processed", resp.Processed).
		Int("failed", failed).
		Msg("Imported ads")
	writeJSON(w, http.StatusOK, resp)
}

// decodePayload separates syntax problems (ok=false) from type mismatches,
// which are reported as field errors like the other validation failures.
func decodePayload(body []byte) (models.ImportPayload, *ValidationError, bool) {
	var p models.ImportPayload
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, nil, false
	}

	err := json.Unmarshal(trimmed, &p)
	if err == nil {
		return p, nil, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		v := newValidationError()
		v.add(typeErr.Field, "Expected "+typeErr.Type.Kind().String()+", received "+typeErr.Value)
		return p, v, true
	}
	return p, nil, false
}

type errorBody struct {
	Error any `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
