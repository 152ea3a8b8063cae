// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pomoquest/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const (
	timeFormat = time.RFC3339Nano
	dateFormat = "2006-01-02"
)

// Store wraps SQLite access for session history and progress data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database, applies migrations, and
// seeds the progress row with zero-state defaults.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			planned_ms INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			status TEXT NOT NULL,
			round INTEGER NOT NULL,
			rounds_per_cycle INTEGER NOT NULL,
			extensions INTEGER NOT NULL,
			xp_awarded INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date TEXT PRIMARY KEY,
			work_sessions INTEGER NOT NULL,
			break_sessions INTEGER NOT NULL,
			micro_sessions INTEGER NOT NULL,
			focus_minutes INTEGER NOT NULL,
			xp_earned INTEGER NOT NULL,
			streak_qualified INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_xp INTEGER NOT NULL,
			level INTEGER NOT NULL,
			current_streak INTEGER NOT NULL,
			longest_streak INTEGER NOT NULL,
			total_sessions INTEGER NOT NULL,
			total_focus_minutes INTEGER NOT NULL,
			last_session_date TEXT NOT NULL,
			equipped_theme TEXT NOT NULL,
			equipped_companion TEXT NOT NULL,
			equipped_title TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS unlocks (
			category TEXT NOT NULL,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			unlocked_at TEXT NOT NULL,
			equipped INTEGER NOT NULL,
			PRIMARY KEY (category, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`INSERT INTO user_progress (id, total_xp, level, current_streak, longest_streak,
			total_sessions, total_focus_minutes, last_session_date,
			equipped_theme, equipped_companion, equipped_title)
			VALUES (1, 0, 1, 0, 0, 0, 0, '', 'midnight', 'sprout', '')
			ON CONFLICT (id) DO NOTHING;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProgress reads the singleton progress row.
func (s *Store) LoadProgress(ctx context.Context) (model.UserProgress, error) {
	var p model.UserProgress
	var lastDate string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_xp, level, current_streak, longest_streak, total_sessions,
			total_focus_minutes, last_session_date,
			equipped_theme, equipped_companion, equipped_title
		FROM user_progress WHERE id = 1`,
	).Scan(&p.TotalXP, &p.Level, &p.CurrentStreak, &p.LongestStreak, &p.TotalSessions,
		&p.TotalFocusMinutes, &lastDate,
		&p.EquippedTheme, &p.EquippedCompanion, &p.EquippedTitle)
	if err != nil {
		return model.UserProgress{}, err
	}
	if lastDate != "" {
		parsed, err := time.ParseInLocation(dateFormat, lastDate, time.Local)
		if err != nil {
			return model.UserProgress{}, err
		}
		p.LastSessionDate = parsed
	}
	return p, nil
}

// QualifyingDates returns the days with at least one streak-qualifying
// session, oldest first.
func (s *Store) QualifyingDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM daily_stats WHERE streak_qualified != 0 ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		parsed, err := time.ParseInLocation(dateFormat, raw, time.Local)
		if err != nil {
			return nil, err
		}
		dates = append(dates, parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

// DailyStatsFor reads one day's aggregate. The second return value is
// false when no session has completed that day yet.
func (s *Store) DailyStatsFor(ctx context.Context, day time.Time) (model.DailyStats, bool, error) {
	var d model.DailyStats
	var raw string
	var qualified int
	err := s.db.QueryRowContext(ctx,
		`SELECT date, work_sessions, break_sessions, micro_sessions,
			focus_minutes, xp_earned, streak_qualified
		FROM daily_stats WHERE date = ?`, day.Format(dateFormat),
	).Scan(&raw, &d.WorkSessions, &d.BreakSessions, &d.MicroSessions,
		&d.FocusMinutes, &d.XPEarned, &qualified)
	if err == sql.ErrNoRows {
		return model.DailyStats{}, false, nil
	}
	if err != nil {
		return model.DailyStats{}, false, err
	}
	parsed, err := time.ParseInLocation(dateFormat, raw, time.Local)
	if err != nil {
		return model.DailyStats{}, false, err
	}
	d.Date = parsed
	d.StreakQualified = qualified != 0
	return d, true, nil
}

// DailyStatsSince returns per-day aggregates from the given day on,
// oldest first.
func (s *Store) DailyStatsSince(ctx context.Context, since *time.Time) ([]model.DailyStats, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if since != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, since.Format(dateFormat))
	}
	query := fmt.Sprintf(`SELECT date, work_sessions, break_sessions, micro_sessions,
			focus_minutes, xp_earned, streak_qualified
		FROM daily_stats WHERE %s ORDER BY date ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var days []model.DailyStats
	for rows.Next() {
		var d model.DailyStats
		var raw string
		var qualified int
		if err := rows.Scan(&raw, &d.WorkSessions, &d.BreakSessions, &d.MicroSessions,
			&d.FocusMinutes, &d.XPEarned, &qualified); err != nil {
			return nil, err
		}
		parsed, err := time.ParseInLocation(dateFormat, raw, time.Local)
		if err != nil {
			return nil, err
		}
		d.Date = parsed
		d.StreakQualified = qualified != 0
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// ListSessions returns session records filtered by the stats config,
// newest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(timeFormat))
	}
	query := fmt.Sprintf(`SELECT id, kind, planned_ms, elapsed_ms, started_at, ended_at,
			status, round, rounds_per_cycle, extensions, xp_awarded
		FROM sessions WHERE %s ORDER BY ended_at DESC`, strings.Join(clauses, " AND "))
	if cfg.Last > 0 {
		query += " LIMIT ?"
		args = append(args, cfg.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanSession(rows *sql.Rows) (model.SessionRecord, error) {
	var r model.SessionRecord
	var plannedMs, elapsedMs int64
	var startedAt, endedAt string
	if err := rows.Scan(&r.ID, &r.Kind, &plannedMs, &elapsedMs, &startedAt, &endedAt,
		&r.Status, &r.Round, &r.RoundsPerCycle, &r.Extensions, &r.XPAwarded); err != nil {
		return model.SessionRecord{}, err
	}
	r.Planned = time.Duration(plannedMs) * time.Millisecond
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	started, err := time.Parse(timeFormat, startedAt)
	if err != nil {
		return model.SessionRecord{}, err
	}
	ended, err := time.Parse(timeFormat, endedAt)
	if err != nil {
		return model.SessionRecord{}, err
	}
	r.StartedAt = started
	r.EndedAt = ended
	return r, nil
}

// ListUnlocks returns every persisted unlock.
func (s *Store) ListUnlocks(ctx context.Context) ([]model.Unlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, key, name, unlocked_at, equipped FROM unlocks ORDER BY unlocked_at ASC, key ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var unlocks []model.Unlock
	for rows.Next() {
		var u model.Unlock
		var unlockedAt string
		var equipped int
		if err := rows.Scan(&u.Category, &u.Key, &u.Name, &unlockedAt, &equipped); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeFormat, unlockedAt)
		if err != nil {
			return nil, err
		}
		u.UnlockedAt = parsed
		u.Equipped = equipped != 0
		unlocks = append(unlocks, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return unlocks, nil
}

// UnlockedKeys returns the persisted unlocks as a lookup set.
func (s *Store) UnlockedKeys(ctx context.Context) (map[model.UnlockKey]bool, error) {
	unlocks, err := s.ListUnlocks(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[model.UnlockKey]bool, len(unlocks))
	for _, u := range unlocks {
		keys[u.UnlockKey] = true
	}
	return keys, nil
}

// RecordAbort stores an abandoned session. Only the record is written;
// progress and daily stats stay untouched.
func (s *Store) RecordAbort(ctx context.Context, record model.SessionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertSessionSQL, sessionArgs(record)...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertSessionSQL = `INSERT INTO sessions (kind, planned_ms, elapsed_ms, started_at, ended_at,
	status, round, rounds_per_cycle, extensions, xp_awarded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func sessionArgs(record model.SessionRecord) []any {
	return []any{
		string(record.Kind),
		record.Planned.Milliseconds(),
		record.Elapsed.Milliseconds(),
		record.StartedAt.Format(timeFormat),
		record.EndedAt.Format(timeFormat),
		string(record.Status),
		record.Round,
		record.RoundsPerCycle,
		record.Extensions,
		record.XPAwarded,
	}
}

// CommitCompletion persists a completed session as one transaction:
// the record, the additive daily-stats delta, the updated progress
// row, and any new unlocks. Either everything applies or nothing does.
func (s *Store) CommitCompletion(ctx context.Context, record model.SessionRecord,
	dailyDelta model.DailyStats, progress model.UserProgress, newUnlocks []model.Unlock) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx, insertSessionSQL, sessionArgs(record)...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	qualified := 0
	if dailyDelta.StreakQualified {
		qualified = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_stats (date, work_sessions, break_sessions, micro_sessions,
			focus_minutes, xp_earned, streak_qualified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			work_sessions = work_sessions + excluded.work_sessions,
			break_sessions = break_sessions + excluded.break_sessions,
			micro_sessions = micro_sessions + excluded.micro_sessions,
			focus_minutes = focus_minutes + excluded.focus_minutes,
			xp_earned = xp_earned + excluded.xp_earned,
			streak_qualified = MAX(streak_qualified, excluded.streak_qualified)`,
		dailyDelta.Date.Format(dateFormat),
		dailyDelta.WorkSessions,
		dailyDelta.BreakSessions,
		dailyDelta.MicroSessions,
		dailyDelta.FocusMinutes,
		dailyDelta.XPEarned,
		qualified,
	)
	if err != nil {
		return 0, err
	}

	lastDate := ""
	if !progress.LastSessionDate.IsZero() {
		lastDate = progress.LastSessionDate.Format(dateFormat)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE user_progress SET total_xp = ?, level = ?, current_streak = ?,
			longest_streak = ?, total_sessions = ?, total_focus_minutes = ?,
			last_session_date = ?
		WHERE id = 1`,
		progress.TotalXP, progress.Level, progress.CurrentStreak,
		progress.LongestStreak, progress.TotalSessions, progress.TotalFocusMinutes,
		lastDate,
	)
	if err != nil {
		return 0, err
	}

	if len(newUnlocks) > 0 {
		// The deferred rollback keys on the outer err.
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO unlocks (category, key, name, unlocked_at, equipped)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, u := range newUnlocks {
			equipped := 0
			if u.Equipped {
				equipped = 1
			}
			if _, err = stmt.ExecContext(ctx, string(u.Category), u.Key, u.Name,
				u.UnlockedAt.Format(timeFormat), equipped); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Equip marks one unlocked item of a category as equipped, clearing
// any previously equipped item of the same category.
func (s *Store) Equip(ctx context.Context, category model.UnlockCategory, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM unlocks WHERE category = ? AND key = ?`,
		string(category), key).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		err = fmt.Errorf("%s %q is not unlocked yet", category, key)
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE unlocks SET equipped = 0 WHERE category = ?`, string(category)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE unlocks SET equipped = 1 WHERE category = ? AND key = ?`,
		string(category), key); err != nil {
		return err
	}

	var column string
	switch category {
	case model.CategoryTheme:
		column = "equipped_theme"
	case model.CategoryCompanion:
		column = "equipped_companion"
	case model.CategoryTitle:
		column = "equipped_title"
	default:
		err = fmt.Errorf("unknown unlock category %q", category)
		return err
	}
	if _, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE user_progress SET %s = ? WHERE id = 1`, column), key); err != nil {
		return err
	}

	return tx.Commit()
}
