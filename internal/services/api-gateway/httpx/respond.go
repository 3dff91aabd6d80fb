package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/NordCoder/Shortly/internal/domain/link"
	"go.uber.org/zap"
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

const maxBody = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func WriteJSON(w http.ResponseWriter, log *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("write response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, log *zap.Logger, status int, code, msg string) {
	WriteJSON(w, log, status, errorBody{Error: errorDetail{Message: msg, Code: code}})
}

// WriteErr renders a domain error. Token and credential failures get fixed
// messages so a client cannot tell expiry from reuse or a missing user from a
// wrong password.
func WriteErr(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domainauth.ErrValidation):
		WriteError(w, log, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		WriteError(w, log, http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password")
	case errors.Is(err, domainauth.ErrInvalidRefreshToken):
		WriteError(w, log, http.StatusForbidden, CodeInvalidRefreshToken, "invalid refresh token")
	case errors.Is(err, domainauth.ErrUnauthorized):
		WriteError(w, log, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	case errors.Is(err, domainauth.ErrUsernameTaken):
		WriteError(w, log, http.StatusConflict, CodeConflict, "username already taken")
	case errors.Is(err, link.ErrShortURLTaken):
		WriteError(w, log, http.StatusConflict, CodeConflict, "short url already taken")
	case errors.Is(err, link.ErrNotFound):
		WriteError(w, log, http.StatusNotFound, CodeNotFound, "link not found")
	default:
		log.Error("request failed", zap.Error(err))
		WriteError(w, log, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

// DecodeJSON reads a bounded JSON body and rejects unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content type must be application/json", domainauth.ErrValidation)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domainauth.ErrValidation)
	}
	return nil
}
