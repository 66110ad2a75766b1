package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// GET /tables?instrument=attention_concentration[&dimension=region&value=Sul]
func ListTablesHandler(store norms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := instrument.ParseType(r.URL.Query().Get("instrument"))
		if err != nil {
			writeValidation(w, err)
			return
		}
		var f *norms.Filter
		if dim := strings.TrimSpace(r.URL.Query().Get("dimension")); dim != "" {
			f = &norms.Filter{Dimension: norms.Dimension(dim), Value: strings.TrimSpace(r.URL.Query().Get("value"))}
		}
		list, err := store.ListActiveTables(r.Context(), t, f)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, norms.ClassUnavailable)
			return
		}
		if list == nil {
			list = []norms.Table{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tables/{tableID}/rows[?subscale=alternating]
func ListRowsHandler(store norms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "tableID"), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Field: "tableID", Error: "must be a positive integer"})
			return
		}
		sub := instrument.Subscale(strings.TrimSpace(r.URL.Query().Get("subscale")))
		rows, err := store.ListRows(r.Context(), id, sub)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, norms.ClassUnavailable)
			return
		}
		if rows == nil {
			rows = []norms.Row{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// POST /admin/tables  (norms.TableSpec)
//
// onPopulate, when set, is called after every successful upsert.
func PopulateHandler(p norms.Populator, onPopulate func(norms.Table), log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var spec norms.TableSpec
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		tb, err := p.Populate(r.Context(), spec)
		switch {
		case errors.Is(err, norms.ErrInvalidTable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			log.Error("populate failed", zap.String("table", spec.Name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "populate failed")
			return
		}
		log.Info("table populated", zap.String("table", tb.Name), zap.Int64("table_id", tb.ID),
			zap.Int("rows", len(spec.Rows)))
		if onPopulate != nil {
			onPopulate(tb)
		}
		writeJSON(w, http.StatusOK, tb)
	}
}

// DELETE /admin/tables/{name}
func DeactivateHandler(p norms.Populator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := p.Deactivate(r.Context(), chi.URLParam(r, "name"))
		switch {
		case errors.Is(err, norms.ErrNotFound):
			writeError(w, http.StatusNotFound, "table not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, "deactivate failed")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}
