package evaluation

// Thresholds are the numeric gates of the evaluator. Stages that need a
// different strictness get their own profile instead of editing these.
type Thresholds struct {
	// UnitMatch is the similarity a unit must exceed to count as covered.
	UnitMatch float64

	// Pass is the final score an answer must exceed.
	Pass float64

	// HighConfidence is the final score at or above which an uncovered
	// high-importance unit no longer vetoes a pass.
	HighConfidence float64

	// HighImportance is the unit weight from which a miss can veto.
	HighImportance float64

	CoverageWeight float64
	STSWeight      float64

	// ContradictionPenalty and EntailmentBonus scale the NLI confidence.
	ContradictionPenalty float64
	EntailmentBonus      float64

	// MissedUnitWeight is the weight from which feedback names the
	// missed unit.
	MissedUnitWeight float64
	SnippetRunes     int

	LowCoverage         float64
	LowSTS              float64
	ContradictionLowSTS float64
	NearTotalCoverage   float64
}

// DefaultThresholds is the canonical profile.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UnitMatch:            0.6,
		Pass:                 0.55,
		HighConfidence:       0.7,
		HighImportance:       1.4,
		CoverageWeight:       0.7,
		STSWeight:            0.3,
		ContradictionPenalty: 0.3,
		EntailmentBonus:      0.05,
		MissedUnitWeight:     1.3,
		SnippetRunes:         15,
		LowCoverage:          0.5,
		LowSTS:               0.4,
		ContradictionLowSTS:  0.5,
		NearTotalCoverage:    0.9,
	}
}

// LenientThresholds is the low-bar profile used for warm-up stages where
// any on-topic answer should advance.
func LenientThresholds() Thresholds {
	t := DefaultThresholds()
	t.Pass = 0.25
	return t
}
