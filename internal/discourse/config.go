package discourse

// Config holds the analyzer's tunable constants.
type Config struct {
	// KeyNodes is the number of key nodes to select (K).
	KeyNodes int

	// RoleCap limits how many key nodes may share a primary role before
	// the cap is relaxed to fill remaining slots.
	RoleCap int

	// NoiseMinRunes and NoiseMinTokens: a sentence shorter than both is
	// discarded unless it contains a defining phrase.
	NoiseMinRunes  int
	NoiseMinTokens int

	// MaxKeywords caps Node.Keywords.
	MaxKeywords int

	// BaseWeights is the importance base per primary role.
	BaseWeights map[Role]float64

	SecondaryRoleBonus float64
	MeasureBonus       float64
	QuoteBonus         float64
	PositionBonus      float64
	ReportingBonus     float64

	// ShortPenalty is subtracted from sentences under ShortRunes.
	ShortPenalty float64
	ShortRunes   int
}

// DefaultConfig returns the canonical analyzer constants.
func DefaultConfig() Config {
	return Config{
		KeyNodes:       3,
		RoleCap:        2,
		NoiseMinRunes:  20,
		NoiseMinTokens: 3,
		MaxKeywords:    5,
		BaseWeights: map[Role]float64{
			RoleDefinition: 3.0,
			RoleClaim:      3.0,
			RoleResult:     3.0,
			RoleCause:      2.0,
			RoleEvidence:   1.5,
			RoleContrast:   1.0,
			RoleReport:     1.0,
			RoleGeneral:    0.5,
		},
		SecondaryRoleBonus: 0.3,
		MeasureBonus:       0.5,
		QuoteBonus:         1.0,
		PositionBonus:      0.5,
		ReportingBonus:     0.5,
		ShortPenalty:       1.5,
		ShortRunes:         20,
	}
}
