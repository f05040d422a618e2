package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/star/orbitrisk/internal/ingest"
	"github.com/star/orbitrisk/internal/propagation"
	"github.com/star/orbitrisk/internal/risk"
	"github.com/star/orbitrisk/internal/tle"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		notFound  *tle.NotFoundError
		parseErr  *tle.ParseError
		propErr   *propagation.PropagationError
		riskErr   *risk.RiskInputError
		sourceErr *ingest.SourceError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, propagation.ErrInvalidWindow), errors.As(err, &riskErr):
		return http.StatusBadRequest
	case errors.As(err, &propErr), errors.Is(err, ingest.ErrNoRecords):
		return http.StatusUnprocessableEntity
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &sourceErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, code, msg)
}
