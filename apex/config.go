package apex

// APEXConfig holds the optimization loop parameters.
type APEXConfig struct {
	// MaxRounds caps the number of generate-critique rounds.
	// Default: 4.
	MaxRounds int

	// QualityThreshold is the score at which a draft is accepted [0.0-1.0].
	// Default: 0.85.
	QualityThreshold float64

	// Temperature overrides the generator model temperature when > 0.
	Temperature float64

	// MaxTokens overrides the generator model max tokens when > 0.
	MaxTokens int64

	// UseMemory toggles pattern retrieval and recording.
	// Requires a Manager wired via WithMemory; ignored otherwise.
	UseMemory bool

	// CandidatesPerRound generates several drafts per round and keeps the
	// best-scoring one. Default: 1.
	CandidatesPerRound int
}

// DefaultAPEXConfig returns the default loop parameters.
func DefaultAPEXConfig() *APEXConfig {
	return &APEXConfig{
		MaxRounds:          4,
		QualityThreshold:   0.85,
		CandidatesPerRound: 1,
	}
}

// withDefaults fills zero values so a partially populated config works.
func (c *APEXConfig) withDefaults() *APEXConfig {
	out := *c
	if out.MaxRounds <= 0 {
		out.MaxRounds = 4
	}
	if out.QualityThreshold <= 0 {
		out.QualityThreshold = 0.85
	}
	if out.CandidatesPerRound <= 0 {
		out.CandidatesPerRound = 1
	}
	return &out
}
