package indexdb

import (
	"context"
	"database/sql"
	"errors"
)

type ScoreRow struct {
	RobotID int `json:"robot_id"`
	Score   int `json:"score"`
	Claims  int `json:"claims"`
}

type ClaimRow struct {
	RunID      string `json:"run_id"`
	Generation uint64 `json:"generation"`
	Tick       uint64 `json:"tick"`
	RobotID    int    `json:"robot_id"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Value      int    `json:"value"`
}

type ResetRow struct {
	RunID       string `json:"run_id"`
	Generation  uint64 `json:"generation"`
	WorldID     string `json:"world_id"`
	Seed        int64  `json:"seed"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Robots      int    `json:"robots"`
	Obstacles   int    `json:"obstacles"`
	Prizes      int    `json:"prizes"`
	StartedTick *int64 `json:"started_tick,omitempty"`
	Ticks       int64  `json:"ticks"`
	RecordedAt  string `json:"recorded_at"`
}

// ErrNoGenerations is returned when the index has not recorded any reset yet.
var ErrNoGenerations = errors.New("indexdb: no generations recorded")

// LatestGeneration returns the most recently recorded generation.
func LatestGeneration(ctx context.Context, db *sql.DB) (runID string, generation uint64, err error) {
	row := db.QueryRowContext(ctx, `SELECT run_id, generation FROM resets ORDER BY recorded_at DESC, generation DESC LIMIT 1`)
	var gen int64
	if err := row.Scan(&runID, &gen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNoGenerations
		}
		return "", 0, err
	}
	return runID, uint64(gen), nil
}

// Leaderboard sums claimed prize values per robot for one generation.
// Robots that never claimed anything are not listed.
func Leaderboard(ctx context.Context, db *sql.DB, runID string, generation uint64) ([]ScoreRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT robot_id, SUM(value), COUNT(*) FROM claims
		WHERE run_id=? AND generation=?
		GROUP BY robot_id
		ORDER BY SUM(value) DESC, robot_id ASC`, runID, int64(generation))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.RobotID, &r.Score, &r.Claims); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentClaims lists the newest claims across all runs.
func RecentClaims(ctx context.Context, db *sql.DB, limit int) ([]ClaimRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT c.run_id, c.generation, c.tick, c.robot_id, c.x, c.y, c.value
		FROM claims c JOIN resets r ON r.run_id=c.run_id AND r.generation=c.generation
		ORDER BY r.recorded_at DESC, c.generation DESC, c.tick DESC, c.robot_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClaimRow
	for rows.Next() {
		var r ClaimRow
		var gen, tick int64
		if err := rows.Scan(&r.RunID, &gen, &tick, &r.RobotID, &r.X, &r.Y, &r.Value); err != nil {
			return nil, err
		}
		r.Generation, r.Tick = uint64(gen), uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Resets lists the newest generations with how many ticks each one ran.
func Resets(ctx context.Context, db *sql.DB, limit int) ([]ResetRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT r.run_id, r.generation, r.world_id, r.seed, r.width, r.height,
			r.robots, r.obstacles, r.prizes, r.started_tick, r.recorded_at,
			(SELECT COUNT(*) FROM ticks t WHERE t.run_id=r.run_id AND t.generation=r.generation)
		FROM resets r
		ORDER BY r.recorded_at DESC, r.generation DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResetRow
	for rows.Next() {
		var r ResetRow
		var gen int64
		var started sql.NullInt64
		if err := rows.Scan(&r.RunID, &gen, &r.WorldID, &r.Seed, &r.Width, &r.Height,
			&r.Robots, &r.Obstacles, &r.Prizes, &started, &r.RecordedAt, &r.Ticks); err != nil {
			return nil, err
		}
		r.Generation = uint64(gen)
		if started.Valid {
			v := started.Int64
			r.StartedTick = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
