package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/evalgo/preloadd/internal/snapshot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists snapshots to the schema described in the
// external interfaces section: state/exes/maps/exe_maps/markovs. It wraps a
// pgxpool.Pool the same way the rest of this codebase wraps pgx for
// connection pooling and direct SQL control.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a pool against connString and ensures the
// schema exists.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("repository: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: ping: %w", err)
	}
	r := &PostgresRepository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS state (
	id INTEGER PRIMARY KEY DEFAULT 1,
	schema_version INTEGER NOT NULL,
	app_version TEXT,
	created_at TIMESTAMPTZ,
	model_time BIGINT NOT NULL,
	last_accounting_time BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS exes (
	path TEXT PRIMARY KEY,
	total_running_time BIGINT NOT NULL,
	last_seen_time BIGINT
);
CREATE TABLE IF NOT EXISTS maps (
	path TEXT NOT NULL,
	offset BIGINT NOT NULL,
	length BIGINT NOT NULL,
	update_time BIGINT NOT NULL,
	PRIMARY KEY (path, offset, length)
);
CREATE TABLE IF NOT EXISTS exe_maps (
	exe_path TEXT NOT NULL,
	map_path TEXT NOT NULL,
	map_offset BIGINT NOT NULL,
	map_length BIGINT NOT NULL,
	PRIMARY KEY (exe_path, map_path, map_offset, map_length)
);
CREATE TABLE IF NOT EXISTS markovs (
	exe_a TEXT NOT NULL,
	exe_b TEXT NOT NULL,
	time_to_leave BYTEA NOT NULL,
	transition_prob BYTEA NOT NULL,
	both_running_time BIGINT NOT NULL,
	PRIMARY KEY (exe_a, exe_b)
);`
	_, err := r.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Load(ctx context.Context) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot

	row := r.pool.QueryRow(ctx, `SELECT schema_version, app_version, created_at, model_time, last_accounting_time FROM state WHERE id = 1`)
	var createdAt time.Time
	var appVersion *string
	err := row.Scan(&snap.Meta.SchemaVersion, &appVersion, &createdAt, &snap.State.ModelTime, &snap.State.LastAccountingTime)
	if err == pgx.ErrNoRows {
		return snapshot.Snapshot{Meta: snapshot.Meta{SchemaVersion: snapshot.SchemaVersion}}, nil
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load state row: %w", err)
	}
	if appVersion != nil {
		snap.Meta.AppVersion = *appVersion
	}
	snap.Meta.CreatedAtUnix = createdAt.Unix()

	exeRows, err := r.pool.Query(ctx, `SELECT path, total_running_time, last_seen_time FROM exes`)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load exes: %w", err)
	}
	defer exeRows.Close()
	for exeRows.Next() {
		var e snapshot.ExeRecord
		var lastSeen *uint64
		if err := exeRows.Scan(&e.Path, &e.TotalRunningTime, &lastSeen); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("repository: scan exe: %w", err)
		}
		e.LastSeenTime = lastSeen
		snap.State.Exes = append(snap.State.Exes, e)
	}

	mapRows, err := r.pool.Query(ctx, `SELECT path, offset, length, update_time FROM maps`)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load maps: %w", err)
	}
	defer mapRows.Close()
	for mapRows.Next() {
		var m snapshot.MapRecord
		if err := mapRows.Scan(&m.Path, &m.Offset, &m.Length, &m.UpdateTime); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("repository: scan map: %w", err)
		}
		snap.State.Maps = append(snap.State.Maps, m)
	}

	emRows, err := r.pool.Query(ctx, `SELECT exe_path, map_path, map_offset, map_length FROM exe_maps`)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load exe_maps: %w", err)
	}
	defer emRows.Close()
	for emRows.Next() {
		var em snapshot.ExeMapRecord
		if err := emRows.Scan(&em.ExePath, &em.MapPath, &em.MapOffset, &em.MapLength); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("repository: scan exe_map: %w", err)
		}
		snap.State.ExeMaps = append(snap.State.ExeMaps, em)
	}

	mvRows, err := r.pool.Query(ctx, `SELECT exe_a, exe_b, time_to_leave, transition_prob, both_running_time FROM markovs`)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load markovs: %w", err)
	}
	defer mvRows.Close()
	for mvRows.Next() {
		var mr snapshot.MarkovRecord
		var ttlBlob, tpBlob []byte
		if err := mvRows.Scan(&mr.ExeA, &mr.ExeB, &ttlBlob, &tpBlob, &mr.BothRunningTime); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("repository: scan markov: %w", err)
		}
		ttl, err := snapshot.DecodeTimeToLeave(ttlBlob)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
		tp, err := snapshot.DecodeTransitionProb(tpBlob)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
		mr.TimeToLeave = ttl
		mr.TransitionProb = tp
		snap.State.MarkovEdges = append(snap.State.MarkovEdges, mr)
	}

	return snap, nil
}

func (r *PostgresRepository) Save(ctx context.Context, snap snapshot.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM markovs`); err != nil {
		return fmt.Errorf("repository: delete markovs: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM exe_maps`); err != nil {
		return fmt.Errorf("repository: delete exe_maps: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM maps`); err != nil {
		return fmt.Errorf("repository: delete maps: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM exes`); err != nil {
		return fmt.Errorf("repository: delete exes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM state`); err != nil {
		return fmt.Errorf("repository: delete state: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO state (id, schema_version, app_version, created_at, model_time, last_accounting_time)
		VALUES (1, $1, $2, $3, $4, $5)`,
		snapshot.SchemaVersion, snap.Meta.AppVersion, time.Unix(snap.Meta.CreatedAtUnix, 0), snap.State.ModelTime, snap.State.LastAccountingTime)
	if err != nil {
		return fmt.Errorf("repository: insert state: %w", err)
	}

	for _, e := range snap.State.Exes {
		if _, err := tx.Exec(ctx, `INSERT INTO exes (path, total_running_time, last_seen_time) VALUES ($1, $2, $3)`,
			e.Path, e.TotalRunningTime, e.LastSeenTime); err != nil {
			return fmt.Errorf("repository: insert exe %q: %w", e.Path, err)
		}
	}
	for _, m := range snap.State.Maps {
		if _, err := tx.Exec(ctx, `INSERT INTO maps (path, offset, length, update_time) VALUES ($1, $2, $3, $4)`,
			m.Path, m.Offset, m.Length, m.UpdateTime); err != nil {
			return fmt.Errorf("repository: insert map %q: %w", m.Path, err)
		}
	}
	for _, em := range snap.State.ExeMaps {
		if _, err := tx.Exec(ctx, `INSERT INTO exe_maps (exe_path, map_path, map_offset, map_length) VALUES ($1, $2, $3, $4)`,
			em.ExePath, em.MapPath, em.MapOffset, em.MapLength); err != nil {
			return fmt.Errorf("repository: insert exe_map: %w", err)
		}
	}
	for _, mr := range snap.State.MarkovEdges {
		ttl := snapshot.EncodeTimeToLeave(mr.TimeToLeave)
		tp := snapshot.EncodeTransitionProb(mr.TransitionProb)
		if _, err := tx.Exec(ctx, `INSERT INTO markovs (exe_a, exe_b, time_to_leave, transition_prob, both_running_time) VALUES ($1, $2, $3, $4, $5)`,
			mr.ExeA, mr.ExeB, ttl, tp, mr.BothRunningTime); err != nil {
			return fmt.Errorf("repository: insert markov %s/%s: %w", mr.ExeA, mr.ExeB, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

var _ StateRepository = (*PostgresRepository)(nil)
