package store

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/okdokhae/okdok/internal/session"
)

type sessionRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

var sessionInfoColumns = []string{
	"id", "work_id", "layout", "status", "current_stage_index",
	"stage_count", "strategy", "version", "created_at", "updated_at",
}

func (r *sessionRepo) CreateSession(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	query, args := sqlite.Insert(SessionsTable.Name).
		Columns(append(append([]string{}, sessionInfoColumns...), "data")...).
		Values(
			s.ID, s.WorkID, string(s.Layout), string(s.Status), s.CurrentStageIndex,
			len(s.Stages), string(s.Strategy), s.Version, s.CreatedAt, s.UpdatedAt, string(data),
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

func (r *sessionRepo) GetSession(ctx context.Context, id string) (*session.Session, error) {
	query, args := sqlite.Select("data").
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get session %s: %w", id, err)
		}
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	var data string
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("scan session %s: %w", id, err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

func (r *sessionRepo) UpdateSession(ctx context.Context, s *session.Session, expectedVersion int) (err error) {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query, args := sqlite.Update(SessionsTable.Name).
		Set("status", string(s.Status)).
		Set("current_stage_index", s.CurrentStageIndex).
		Set("stage_count", len(s.Stages)).
		Set("strategy", string(s.Strategy)).
		Set("version", s.Version).
		Set("updated_at", s.UpdatedAt).
		Set("data", string(data)).
		Where(entsql.And(entsql.EQ("id", s.ID), entsql.EQ("version", expectedVersion))).
		Query()

	var res stdsql.Result
	if err = tx.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if n == 0 {
		exists, xerr := sessionExists(ctx, tx, s.ID)
		if xerr != nil {
			err = xerr
			return err
		}
		if !exists {
			err = fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
			return err
		}
		err = fmt.Errorf("session %s at version %d: %w", s.ID, expectedVersion, ErrStaleSession)
		return err
	}

	// Each transition appends one submission, so the new ones start at
	// the version the caller read.
	start := min(max(expectedVersion, 0), len(s.History))
	for _, sub := range s.History[start:] {
		if err = r.appendSubmission(ctx, tx, s.ID, sub); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", s.ID, err)
	}
	return nil
}

func (r *sessionRepo) appendSubmission(ctx context.Context, tx dialect.ExecQuerier, sessionID string, sub session.Submission) error {
	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	result, err := json.Marshal(sub.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	ts := sub.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args := sqlite.Insert(SubmissionEventsTable.Name).
		Columns(
			"sequence", "timestamp", "session_id", "stage_id", "stage_index", "answer",
			"final_score", "is_passed", "action", "strategy", "failed_check", "result",
		).
		Values(
			seq, ts, sessionID, sub.StageID, sub.StageIndex, sub.Answer,
			sub.Result.FinalScore, sub.Result.IsPassed, string(sub.Action), string(sub.Strategy),
			sub.Result.FailedCheck, string(result),
		).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func sessionExists(ctx context.Context, q dialect.ExecQuerier, id string) (bool, error) {
	query, args := sqlite.Select(entsql.Count("*")).
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("check session %s: %w", id, err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("check session %s: %w", id, err)
		}
	}
	return n > 0, rows.Err()
}

func (r *sessionRepo) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	selector := sqlite.Select(sessionInfoColumns...).
		From(entsql.Table(SessionsTable.Name)).
		OrderBy(entsql.Desc("updated_at"), entsql.Desc("created_at"))
	if limit > 0 {
		selector.Limit(limit)
	}
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info                     SessionInfo
			layout, status, strategy string
		)
		if err := rows.Scan(
			&info.ID, &info.WorkID, &layout, &status, &info.CurrentStageIndex,
			&info.StageCount, &strategy, &info.Version, &info.CreatedAt, &info.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.Layout = session.Layout(layout)
		info.Status = session.Status(status)
		info.Strategy = session.Strategy(strategy)
		out = append(out, info)
	}
	return out, rows.Err()
}
