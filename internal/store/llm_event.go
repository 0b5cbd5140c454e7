package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/llm"
	"github.com/okdokhae/okdok/internal/session"
)

type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, ev llm.RequestEvent) (err error) {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	query, args := sqlite.Insert(LlmRequestEventsTable.Name).
		Columns(llmEventColumns[1:]...).
		Values(
			seq, time.Now(), ev.Provider, ev.Model, ev.Purpose,
			ev.InputTokens, ev.OutputTokens, ev.LatencyMs, ev.Success,
			ev.ErrorMessage, ev.RequestBody, ev.ResponseBody,
		).
		Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return tx.Commit()
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, purpose string, opts QueryOpts) ([]LLMEvent, error) {
	selector := sqlite.Select(llmEventColumns...).
		From(entsql.Table(LlmRequestEventsTable.Name)).
		OrderBy(entsql.Desc("sequence"))
	if purpose != "" {
		selector.Where(entsql.EQ("purpose", purpose))
	}
	query, args := applyOpts(selector, opts).Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		ev, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	query, args := sqlite.Select(llmEventColumns...).
		From(entsql.Table(LlmRequestEventsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get llm event %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	ev, err := scanLLMEvent(rows)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanLLMEvent(rows *entsql.Rows) (LLMEvent, error) {
	var ev LLMEvent
	err := rows.Scan(
		&ev.ID, &ev.Sequence, &ev.Timestamp, &ev.Provider, &ev.Model, &ev.Purpose,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success,
		&ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody,
	)
	if err != nil {
		return LLMEvent{}, fmt.Errorf("scan llm event: %w", err)
	}
	return ev, nil
}

func (r *eventRepo) LLMUsage(ctx context.Context) ([]LLMUsage, error) {
	query, args := sqlite.Select(
		"purpose", "model",
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As(entsql.Sum("success"), "successes"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As(entsql.Sum("latency_ms"), "latency_ms"),
	).
		From(entsql.Table(LlmRequestEventsTable.Name)).
		GroupBy("purpose", "model").
		OrderBy("purpose", "model").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("llm usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u         LLMUsage
			successes int
			latency   int64
		)
		if err := rows.Scan(&u.Purpose, &u.Model, &u.Calls, &successes, &u.InputTokens, &u.OutputTokens, &latency); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		u.Failures = u.Calls - successes
		if u.Calls > 0 {
			u.AvgLatencyMs = latency / int64(u.Calls)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *eventRepo) QuerySubmissions(ctx context.Context, sessionID string, opts QueryOpts) ([]SubmissionEvent, error) {
	selector := sqlite.Select(
		"id", "sequence", "timestamp", "session_id", "stage_id", "stage_index", "answer",
		"final_score", "is_passed", "action", "strategy", "failed_check", "result",
	).
		From(entsql.Table(SubmissionEventsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	query, args := applyOpts(selector, opts).Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []SubmissionEvent
	for rows.Next() {
		var (
			ev               SubmissionEvent
			action, strategy string
			result           string
		)
		if err := rows.Scan(
			&ev.ID, &ev.Sequence, &ev.Timestamp, &ev.SessionID, &ev.StageID, &ev.StageIndex, &ev.Answer,
			&ev.FinalScore, &ev.IsPassed, &action, &strategy, &ev.FailedCheck, &result,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		ev.Action = session.ActionKind(action)
		ev.Strategy = session.Strategy(strategy)
		var res evaluation.Result
		if err := json.Unmarshal([]byte(result), &res); err != nil {
			return nil, fmt.Errorf("unmarshal submission result: %w", err)
		}
		ev.Result = res
		out = append(out, ev)
	}
	return out, rows.Err()
}
