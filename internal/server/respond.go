package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, models.Response{Success: true, Message: message, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, models.Response{Success: success, Message: message})
}

// writeError maps err onto the status taxonomy. Internal errors are logged
// and hidden from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := store.StatusCode(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeMessage(w, status, false, "internal server error")
		return
	}
	writeMessage(w, status, false, err.Error())
}

// decodeJSON reads the request body, which the router caps with
// middleware.RequestSize.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", store.ErrValidation)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", store.ErrTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid request body: %v", store.ErrValidation, err)
	}
	return nil
}

func pageFromQuery(r *http.Request) (models.PageRequest, error) {
	var page models.PageRequest
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, fmt.Errorf("%w: page must be a positive integer", store.ErrValidation)
		}
		page.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, fmt.Errorf("%w: limit must be a positive integer", store.ErrValidation)
		}
		page.Limit = n
	}
	return page.Normalize(), nil
}

func typeFromQuery(r *http.Request) (models.TransactionType, error) {
	t := models.TransactionType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		return "", fmt.Errorf("%w: unknown transaction type %q", store.ErrValidation, t)
	}
	return t, nil
}
