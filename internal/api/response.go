package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/popis/internal/ledger"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/policy"
	"github.com/erazemk/popis/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto status codes. Anything unrecognized
// is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *ledger.ImportError
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ie):
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  ie.Error(),
			"errors": ie.Messages(),
		})
	case errors.As(err, &ve):
		body := map[string]string{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		jsonResponse(w, http.StatusBadRequest, body)
	case errors.Is(err, policy.ErrForbidden):
		jsonError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrReferenced):
		slog.Debug("request conflict", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// conflict replaces a store conflict or reference error with a message
// fit for the client.
func conflict(err error, message string) error {
	for _, sentinel := range []error{store.ErrConflict, store.ErrReferenced} {
		if errors.Is(err, sentinel) {
			return &clientError{kind: sentinel, message: message}
		}
	}
	return err
}

// clientError carries a sentinel for status mapping and the exact text
// sent in the response body.
type clientError struct {
	kind    error
	message string
}

func (e *clientError) Error() string { return e.message }
func (e *clientError) Unwrap() error { return e.kind }

// notFound reports a missing object by kind.
func notFound(kind string) error {
	return fmt.Errorf("%s %w", kind, store.ErrNotFound)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses an integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt parses an optional integer query parameter; absent is zero.
func queryInt(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &model.ValidationError{Field: name, Message: fmt.Sprintf("invalid %s", name)}
	}
	return n, nil
}
