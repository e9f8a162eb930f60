package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tesoportamos/core/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail emits the contract's error body: a single detail string
// suitable for direct display.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeStoreError maps store failures: timeouts and connection loss are
// retryable 503s, anything else is a plain 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if store.IsUnavailable(err) {
		writeDetail(w, http.StatusServiceUnavailable, "Almacén de datos no disponible, inténtelo de nuevo")
		return
	}
	writeDetail(w, http.StatusInternalServerError, "Error interno del servidor")
}

func pathID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
