package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// SessionsColumns holds the columns for the "sessions" table. The
	// whole session is kept in data; the other columns are for listing.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "work_id", Type: field.TypeString, Default: ""},
		{Name: "layout", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "current_stage_index", Type: field.TypeInt, Default: 0},
		{Name: "stage_count", Type: field.TypeInt, Default: 0},
		{Name: "strategy", Type: field.TypeString},
		{Name: "version", Type: field.TypeInt, Default: 0},
		{Name: "data", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_work_id", Columns: []*schema.Column{SessionsColumns[1]}},
			{Name: "session_updated_at", Columns: []*schema.Column{SessionsColumns[10]}},
		},
	}

	// SubmissionEventsColumns holds the columns for the "submission_events" table.
	SubmissionEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "session_id", Type: field.TypeString},
		{Name: "stage_id", Type: field.TypeString},
		{Name: "stage_index", Type: field.TypeInt},
		{Name: "answer", Type: field.TypeString, Size: 2147483647},
		{Name: "final_score", Type: field.TypeFloat64},
		{Name: "is_passed", Type: field.TypeBool},
		{Name: "action", Type: field.TypeString},
		{Name: "strategy", Type: field.TypeString},
		{Name: "failed_check", Type: field.TypeString, Default: ""},
		{Name: "result", Type: field.TypeString, Size: 2147483647},
	}
	// SubmissionEventsTable holds the schema information for the "submission_events" table.
	SubmissionEventsTable = &schema.Table{
		Name:       "submission_events",
		Columns:    SubmissionEventsColumns,
		PrimaryKey: []*schema.Column{SubmissionEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "submissionevent_session_id", Columns: []*schema.Column{SubmissionEventsColumns[3]}},
			{Name: "submissionevent_timestamp", Columns: []*schema.Column{SubmissionEventsColumns[2]}},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	// LlmRequestEventsTable holds the schema information for the "llm_request_events" table.
	LlmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LlmRequestEventsColumns[5]}},
			{Name: "llmrequestevent_success", Columns: []*schema.Column{LlmRequestEventsColumns[9]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		SessionsTable,
		SubmissionEventsTable,
		LlmRequestEventsTable,
	}
)
