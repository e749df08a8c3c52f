package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/logger"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeNotFound         ErrorCode = "not_found"
	CodeInvalidMode      ErrorCode = "invalid_search_mode"
	CodeUnknownFacet     ErrorCode = "unknown_facet"
	CodeInvalidQuery     ErrorCode = "invalid_query"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeForbidden        ErrorCode = "forbidden"
	CodeConflict         ErrorCode = "conflict"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeUpstream         ErrorCode = "upstream_error"
	CodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// errorTable is checked in order; the first sentinel matched by errors.Is wins.
var errorTable = []errorMapping{
	{domain.ErrDocumentNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrMetadataNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrInvalidSearchMode, http.StatusBadRequest, CodeInvalidMode},
	{domain.ErrUnknownFacet, http.StatusBadRequest, CodeUnknownFacet},
	{domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery},
	{domain.ErrUpstream, http.StatusBadGateway, CodeUpstream},
}

// statusFor maps an error to a status, code and client-safe message.
func statusFor(err error) (int, ErrorCode, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code, m.sentinel.Error()
		}
	}
	return http.StatusInternalServerError, CodeInternal, "internal error"
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	log := logger.FromContext(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
	case status != http.StatusNotFound:
		log.Warn("request rejected", zap.Error(err))
	}
	writeError(w, status, code, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
