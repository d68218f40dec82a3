// Package eventstore caches indexer-sourced set events in SQLite so
// reconciliation can run against a complete local copy of the log.
// Completeness matters: the reconciler's union is only trustworthy when
// every event for a receivers hash is present.
package eventstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"math/big"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dripforge/dripforge/internal/reconcile"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for the set-event log.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Idempotent: safe to call multiple times against the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// WriteSetEvent inserts one set event and its seen entries in a single
// transaction. Re-ingesting the same event is a no-op: the event row is
// keyed by its logical identity and entries by their indexer entry id, so
// repeated indexer pulls stay idempotent.
func (s *Store) WriteSetEvent(ctx context.Context, ev reconcile.SetEvent) error {
	if ev.UserID == nil || ev.AssetID == nil {
		return fmt.Errorf("write set event: userId and assetId are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO set_events (user_id, asset_id, receivers_hash, block_timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, asset_id, receivers_hash, block_timestamp) DO NOTHING
	`,
		ev.UserID.String(),
		ev.AssetID.String(),
		hex.EncodeToString(ev.ReceiversHash[:]),
		ev.BlockTimestamp,
	)
	if err != nil {
		return fmt.Errorf("write set event: %w", err)
	}

	eventID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("write set event: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		// Already ingested; look the row up so new entries still attach.
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM set_events
			WHERE user_id = ? AND asset_id = ? AND receivers_hash = ? AND block_timestamp = ?
		`,
			ev.UserID.String(),
			ev.AssetID.String(),
			hex.EncodeToString(ev.ReceiversHash[:]),
			ev.BlockTimestamp,
		).Scan(&eventID)
		if err != nil {
			return fmt.Errorf("find existing set event: %w", err)
		}
	}

	for _, entry := range ev.ReceiverSeenEntries {
		if entry.ReceiverUserID == nil || entry.Config == nil {
			return fmt.Errorf("write set event: seen entry %q is missing fields", entry.EntryID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO seen_entries (entry_id, event_id, receiver_user_id, config)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(entry_id) DO NOTHING
		`,
			entry.EntryID,
			eventID,
			entry.ReceiverUserID.String(),
			entry.Config.String(),
		)
		if err != nil {
			return fmt.Errorf("write seen entry: %w", err)
		}
	}

	return tx.Commit()
}

// ListSetEvents returns the cached log for one (userId, assetId) pair,
// ordered by block timestamp with rowid as the stable tie-break, ready to
// hand to reconcile.Reconcile.
func (s *Store) ListSetEvents(ctx context.Context, userID, assetID *big.Int) ([]reconcile.SetEvent, error) {
	if userID == nil || assetID == nil {
		return nil, fmt.Errorf("list set events: userId and assetId are required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receivers_hash, block_timestamp
		FROM set_events
		WHERE user_id = ? AND asset_id = ?
		ORDER BY block_timestamp ASC, id ASC
	`, userID.String(), assetID.String())
	if err != nil {
		return nil, fmt.Errorf("query set events: %w", err)
	}
	defer rows.Close()

	type eventRow struct {
		id    int64
		event reconcile.SetEvent
	}
	var eventRows []eventRow
	for rows.Next() {
		var (
			id      int64
			hashHex string
			ts      uint64
		)
		if err := rows.Scan(&id, &hashHex, &ts); err != nil {
			return nil, fmt.Errorf("scan set event: %w", err)
		}
		hash, err := decodeHash(hashHex)
		if err != nil {
			return nil, fmt.Errorf("scan set event %d: %w", id, err)
		}
		eventRows = append(eventRows, eventRow{
			id: id,
			event: reconcile.SetEvent{
				UserID:         new(big.Int).Set(userID),
				AssetID:        new(big.Int).Set(assetID),
				ReceiversHash:  hash,
				BlockTimestamp: ts,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate set events: %w", err)
	}

	events := make([]reconcile.SetEvent, 0, len(eventRows))
	for _, er := range eventRows {
		entries, err := s.readEntries(ctx, er.id)
		if err != nil {
			return nil, err
		}
		er.event.ReceiverSeenEntries = entries
		events = append(events, er.event)
	}
	return events, nil
}

func (s *Store) readEntries(ctx context.Context, eventID int64) ([]reconcile.SeenEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, receiver_user_id, config
		FROM seen_entries
		WHERE event_id = ?
		ORDER BY entry_id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query seen entries: %w", err)
	}
	defer rows.Close()

	var entries []reconcile.SeenEntry
	for rows.Next() {
		var entryID, userStr, configStr string
		if err := rows.Scan(&entryID, &userStr, &configStr); err != nil {
			return nil, fmt.Errorf("scan seen entry: %w", err)
		}
		user, ok := new(big.Int).SetString(userStr, 10)
		if !ok {
			return nil, fmt.Errorf("seen entry %q: bad receiver id %q", entryID, userStr)
		}
		config, ok := new(big.Int).SetString(configStr, 10)
		if !ok {
			return nil, fmt.Errorf("seen entry %q: bad config %q", entryID, configStr)
		}
		entries = append(entries, reconcile.SeenEntry{
			ReceiverUserID: user,
			Config:         config,
			EntryID:        entryID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen entries: %w", err)
	}
	return entries, nil
}

func decodeHash(hashHex string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hashHex)
	if err != nil {
		return out, fmt.Errorf("bad receivers hash %q: %w", hashHex, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("receivers hash %q is %d bytes, want 32", hashHex, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
