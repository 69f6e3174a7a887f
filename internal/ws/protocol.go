package ws

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/tgate/dataviewer/internal/store"
)

// errorResponse is the body of every non-2xx REST response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("ws: encoding response: %v", err)
	}
}

// writeError maps store errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUnknownTable):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUnknownColumn), errors.Is(err, store.ErrInvalidQuery):
		status = http.StatusBadRequest
	default:
		glog.Errorf("ws: request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
