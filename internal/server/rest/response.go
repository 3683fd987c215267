package rest

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

const (
	maxJSONBody = 1 << 20

	msgInternal  = "internal server error"
	msgBadJSON   = "invalid JSON body"
	msgBadID     = "invalid id"
	msgNoBearer  = "authorization header missing or malformed"
	msgRateLimit = "too many requests, try again later"
)

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message       string   `json:"message"`
	MissingFields []string `json:"missingFields,omitempty"`
	InvalidFields []string `json:"invalidFields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, messageResponse{Message: message})
}

// writeServiceError maps service errors to a status and a client-safe
// message. Unknown errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		resp := validationResponse{Message: ve.Message}
		if ve.Missing {
			resp.MissingFields = ve.Fields
		} else {
			resp.InvalidFields = ve.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var le *services.LockedError
	if errors.As(err, &le) {
		secs := int(math.Ceil(le.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, le.Error())
		return
	}

	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, common.ErrDuplicateEmail.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrInvalidRefreshToken),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrUserMismatch),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, forbiddenMessage(err))
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, common.ErrUnsupportedImage.Error())
	case errors.Is(err, common.ErrImageTooLarge):
		writeError(w, http.StatusBadRequest, common.ErrImageTooLarge.Error())
	default:
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func forbiddenMessage(err error) string {
	for _, s := range []error{
		common.ErrInvalidRefreshToken,
		common.ErrRefreshTokenExpired,
		common.ErrUserMismatch,
		common.ErrTokenExpired,
		common.ErrInvalidToken,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return common.ErrForbidden.Error()
}

// decodeJSON reads a JSON object into dst. An empty body decodes as {} so
// required-field validation can report what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return false
	}
	return true
}
