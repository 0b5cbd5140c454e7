package session

import "time"

// StageSummary is the attempt record of one stage.
type StageSummary struct {
	Stage     Stage
	Attempts  int
	BestScore float64
	Escalated bool
}

// Summary holds the data shown when a session is reviewed.
type Summary struct {
	SessionID    string
	Status       Status
	Duration     time.Duration
	Attempts     int
	Passed       int
	AverageScore float64
	Stages       []StageSummary
}

// Summarize builds a Summary from the session history.
func Summarize(s *Session) *Summary {
	byStage := make(map[string]*StageSummary, len(s.Stages))
	stages := make([]StageSummary, len(s.Stages))
	for i, st := range s.Stages {
		stages[i] = StageSummary{Stage: st}
		byStage[st.ID] = &stages[i]
	}

	var total float64
	for _, sub := range s.History {
		ss, ok := byStage[sub.StageID]
		if !ok {
			continue
		}
		ss.Attempts++
		ss.BestScore = max(ss.BestScore, sub.Result.FinalScore)
		if sub.Action == ActionEscalate {
			ss.Escalated = true
		}
		total += sub.Result.FinalScore
	}

	sum := &Summary{
		SessionID: s.ID,
		Status:    s.Status,
		Duration:  s.UpdatedAt.Sub(s.CreatedAt),
		Attempts:  len(s.History),
		Stages:    stages,
	}
	for _, st := range s.Stages {
		if st.Status == StagePassed {
			sum.Passed++
		}
	}
	if sum.Attempts > 0 {
		sum.AverageScore = total / float64(sum.Attempts)
	}
	return sum
}
