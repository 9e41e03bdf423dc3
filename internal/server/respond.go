package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
)

// errorBody is the JSON envelope for failures.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a coded error to an HTTP status and JSON body.
// Rate-limit failures include a Retry-After header when the reset time
// is known.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)

	if resetAt, ok := errors.IsRateLimited(err); ok {
		if !resetAt.IsZero() {
			if wait := time.Until(resetAt); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
		}
		status = http.StatusTooManyRequests
		code = errors.ErrCodeRateLimited
	} else if errors.IsAuthExpired(err) {
		status = http.StatusUnauthorized
		code = errors.ErrCodeAuthExpired
	} else if errors.IsValidation(err) {
		status = http.StatusBadRequest
	} else if errors.IsNotFound(err) {
		status = http.StatusNotFound
	} else {
		switch code {
		case errors.ErrCodeUnauthorized, errors.ErrCodeSessionExpired:
			status = http.StatusUnauthorized
		case errors.ErrCodeStorageConflict:
			status = http.StatusConflict
		case errors.ErrCodeTimeout:
			status = http.StatusGatewayTimeout
		case errors.ErrCodeNetwork:
			status = http.StatusBadGateway
		}
	}

	if code == "" {
		code = errors.ErrCodeInternal
	}
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = errors.UserMessage(err)
	writeJSON(w, status, body)
}
