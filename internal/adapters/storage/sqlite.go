package storage

// sqlite.go — rastro de auditoría de ejecuciones.
//
// Tabla única `executions`, insert-only: cada intento de copiar un trade
// (enviado, saltado o fallido) deja una fila. No se rehidrata estado del
// pipeline desde aquí — la dedup y las posiciones viven en memoria y se
// reconstruyen solas tras un reinicio. Prune automático al arrancar (30 días).

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id              TEXT PRIMARY KEY,
    mode            TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    leader          TEXT    NOT NULL,
    condition_id    TEXT    NOT NULL,
    asset           TEXT    NOT NULL DEFAULT '',
    title           TEXT    NOT NULL DEFAULT '',
    side            TEXT    NOT NULL,
    price           REAL    NOT NULL DEFAULT 0,
    size            REAL    NOT NULL DEFAULT 0,
    usdc_size       REAL    NOT NULL DEFAULT 0,
    aggregated_from INTEGER NOT NULL DEFAULT 0,
    latency_ms      INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT    NOT NULL -- RFC3339 UTC, ordena lexicográficamente
);

CREATE INDEX IF NOT EXISTS idx_exec_created ON executions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_exec_leader  ON executions(leader);
CREATE INDEX IF NOT EXISTS idx_exec_status  ON executions(status);
`

// retención del histórico
const retentionExecutions = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.ExecutionStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveExecution registra un intento de copia.
func (s *SQLiteStorage) SaveExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
			(id, mode, status, leader, condition_id, asset, title, side,
			 price, size, usdc_size, aggregated_from, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Mode,
		rec.Status,
		rec.Leader,
		rec.ConditionID,
		rec.Asset,
		rec.Title,
		rec.Side,
		rec.Price,
		rec.Size,
		rec.UsdcSize,
		rec.AggregatedFrom,
		rec.LatencyMS,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveExecution: insert %s: %w", rec.ID, err)
	}
	return nil
}

// RecentExecutions devuelve las últimas ejecuciones, más recientes primero.
func (s *SQLiteStorage) RecentExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, status, leader, condition_id, asset, title, side,
		       price, size, usdc_size, aggregated_from, latency_ms, created_at
		FROM executions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentExecutions: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var createdAt string

		if err := rows.Scan(
			&rec.ID,
			&rec.Mode,
			&rec.Status,
			&rec.Leader,
			&rec.ConditionID,
			&rec.Asset,
			&rec.Title,
			&rec.Side,
			&rec.Price,
			&rec.Size,
			&rec.UsdcSize,
			&rec.AggregatedFrom,
			&rec.LatencyMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentExecutions: scan row: %w", err)
		}

		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// Stats agrega el histórico completo: conteos por estado, USDC enviado y
// latencia media de las órdenes que salieron.
func (s *SQLiteStorage) Stats(ctx context.Context) (domain.ExecutionStats, error) {
	var stats domain.ExecutionStats

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN usdc_size ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN status = ? THEN latency_ms END), 0)
		FROM executions`,
		domain.StatusSubmitted,
		domain.StatusSkipped,
		domain.StatusFailed,
		domain.StatusSubmitted,
		domain.StatusSubmitted,
	)
	if err := row.Scan(
		&stats.Total,
		&stats.Submitted,
		&stats.Skipped,
		&stats.Failed,
		&stats.SubmittedUsdc,
		&stats.AvgLatencyMS,
	); err != nil {
		return domain.ExecutionStats{}, fmt.Errorf("storage.Stats: scan: %w", err)
	}
	return stats, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina ejecuciones antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionExecutions).Format(time.RFC3339Nano)
	s.db.ExecContext(ctx, `DELETE FROM executions WHERE created_at < ?`, cutoff)
}
