package exam

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/storage"
)

// Recover looks up an unfinished session record. A corrupt record is removed
// and treated as absent; read failures are treated as absent too.
func Recover(ctx context.Context, store storage.Storage, key string, log zerolog.Logger) (*model.SessionRecord, bool) {
	data, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("session_key", key).Msg("Session record read failed, starting fresh")
		}
		return nil, false
	}

	rec, err := decodeRecord(data)
	if err != nil {
		log.Warn().Err(err).Str("session_key", key).Msg("Discarding malformed session record")
		if rmErr := store.Remove(ctx, key); rmErr != nil {
			log.Warn().Err(rmErr).Str("session_key", key).Msg("Failed to remove malformed session record")
		}
		return nil, false
	}
	return rec, true
}

func decodeRecord(data []byte) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.TimeLeftSeconds < 0 {
		return nil, errors.New("negative time left")
	}
	if rec.Answers == nil {
		rec.Answers = map[string]model.AnswerValue{}
	}
	for qid, v := range rec.Answers {
		if v.Kind() == model.AnswerKindNone {
			delete(rec.Answers, qid)
		}
	}
	if rec.Doubtfuls == nil {
		rec.Doubtfuls = map[string]bool{}
	}
	return &rec, nil
}
