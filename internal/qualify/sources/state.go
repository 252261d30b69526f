package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

// StateDB loads scanner state through the backend's stored procedures.
// The scanner table itself is owned by the orchestration backend; this
// service only ever calls the two read procedures below.
type StateDB struct {
	pool *pgxpool.Pool
}

// ConnectStateDB creates a pgx pool and verifies connectivity.
func ConnectStateDB(ctx context.Context, databaseURL string) (*StateDB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &StateDB{pool: pool}, nil
}

// Close releases the pool.
func (db *StateDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// ChannelState returns the channel id plus its work queue for one
// scanner. The queue column is a comma-separated id list maintained by
// the backend; splitting it here keeps the procedure contract stable.
func (db *StateDB) ChannelState(ctx context.Context, scannerID int64) (qualify.ChannelState, error) {
	qualify.IncrStateQueries()
	var (
		channelID   string
		queuedCSV   *string
		excludedCSV *string
	)
	row := db.pool.QueryRow(ctx,
		`SELECT youtube_channel_id, queued_video_ids, excluded_video_ids FROM get_channel_queue($1)`,
		scannerID)
	if err := row.Scan(&channelID, &queuedCSV, &excludedCSV); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return qualify.ChannelState{}, fmt.Errorf("scanner %d: %w", scannerID, qualify.ErrScannerNotFound)
		}
		return qualify.ChannelState{}, fmt.Errorf("get_channel_queue(%d): %w", scannerID, err)
	}
	if channelID == "" {
		return qualify.ChannelState{}, fmt.Errorf("scanner %d has no channel: %w", scannerID, qualify.ErrScannerNotFound)
	}
	return qualify.ChannelState{
		ChannelID:   channelID,
		QueuedIDs:   splitCSV(queuedCSV),
		ExcludedIDs: splitCSV(excludedCSV),
	}, nil
}

// ProjectContext returns the product/service description the judge
// matches candidates against.
func (db *StateDB) ProjectContext(ctx context.Context, scannerID int64) (qualify.Project, error) {
	qualify.IncrStateQueries()
	var p qualify.Project
	row := db.pool.QueryRow(ctx,
		`SELECT product_name, service_description, country FROM get_project_by_scanner($1)`,
		scannerID)
	if err := row.Scan(&p.ProductName, &p.ServiceDescription, &p.Country); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return qualify.Project{}, fmt.Errorf("scanner %d project: %w", scannerID, qualify.ErrScannerNotFound)
		}
		return qualify.Project{}, fmt.Errorf("get_project_by_scanner(%d): %w", scannerID, err)
	}
	return p, nil
}

func splitCSV(s *string) []string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	parts := strings.Split(*s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
