package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-norms/internal/scoring"
)

// Scorer is the engine surface the HTTP layer needs.
type Scorer interface {
	Score(ctx context.Context, q scoring.Query) (scoring.Result, error)
}

// POST /score  {"instrument":"...","inputs":{...},"criteria":{...},"table_id":1}
func ScoreHandler(s Scorer, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var q scoring.Query
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		if err := dec.Decode(&q); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		res, err := s.Score(r.Context(), q)
		if err != nil {
			if writeValidation(w, err) {
				return
			}
			log.Error("score failed", zap.String("instrument", string(q.Instrument)), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
