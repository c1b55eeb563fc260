package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"animal-quiz-service/internal/domain"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: domain.ErrorCode(err), Message: message}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrUnknownAchievement),
		errors.Is(err, domain.ErrAchievementNotReportable),
		errors.Is(err, domain.ErrMaxHintsReached),
		errors.Is(err, domain.ErrMaxRevealsReached):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body. Any decoding failure is an invalid request.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidRequest
	}
	return nil
}

// queryInt returns fallback when the parameter is absent and an error when it is malformed.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	return v, nil
}

// locale prefers an explicit ?lang= over the Accept-Language header.
func locale(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}
