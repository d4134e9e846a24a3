package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"crowny-exchange/internal/engine"
)

// AppendSignal persists one AI consensus result (spec §3 AiSignal, §4.8).
func (d *DB) AppendSignal(symbol, venue, interval string, consensus engine.Consensus) (string, error) {
	strategies, err := json.Marshal(consensus.Strategies)
	if err != nil {
		return "", err
	}
	risk, err := json.Marshal(consensus.Risk)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = d.sql.Exec(`
		INSERT INTO ai_signals (id, symbol, venue, interval, signal, score, confidence, trit, strategies, risk, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, symbol, venue, interval, string(consensus.Decision), consensus.Score, consensus.AvgConfidence,
		consensus.Trit.Glyph(), string(strategies), string(risk), time.Now().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}
