package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/storage"
)

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	// Signature is set when a transaction reached the cluster before the
	// failure, so the caller can inspect it in an explorer.
	Signature string `json:"signature,omitempty"`
	// OutcomeUnknown marks confirmation timeouts: the transaction may
	// still have landed, the caller must not assume failure.
	OutcomeUnknown bool `json:"outcome_unknown,omitempty"`
}

// statusForError maps the failure taxonomy to HTTP status codes.
func statusForError(err error) int {
	var execErr *domain.ExecutionError
	var rpcErr *solana.RPCError

	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidIntent),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthorityMismatch),
		errors.Is(err, domain.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfirmationTimeout),
		errors.Is(err, domain.ErrTransactionExpired):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrPublish),
		errors.As(err, &execErr),
		errors.As(err, &rpcErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the error with its mapped status.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var execErr *domain.ExecutionError
	if errors.As(err, &execErr) {
		resp.Signature = execErr.Signature
	}
	if errors.Is(err, domain.ErrConfirmationTimeout) {
		resp.OutcomeUnknown = true
	}

	writeJSON(w, statusForError(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
