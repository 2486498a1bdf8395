package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/salonbook/salonbook/libs/apperr"
)

// Validator is implemented by request bodies that check their own fields.
type Validator interface {
	Validate() error
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError maps err onto a status code and a JSON error body. Unexpected
// errors are logged and reported to the client without detail.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := apperr.As(err)
	status := StatusFor(e.Kind)
	msg := e.Message
	if e.Kind == apperr.KindUnexpected {
		if logger != nil {
			logger.Error("request failed",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"err", err,
			)
		}
		msg = "internal error"
	}
	WriteJSON(w, status, errorBody{Error: e.Code, Message: msg})
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON strictly decodes the request body into dst and runs its Validate
// method when present.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is empty")
		case errors.As(err, &maxErr):
			return apperr.Validation("request body too large")
		default:
			return apperr.Wrap(err, apperr.KindValidation, "invalid_json", "invalid json body")
		}
	}
	if v, ok := dst.(Validator); ok {
		return v.Validate()
	}
	return nil
}
