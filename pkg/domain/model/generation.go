package model

// Default sampling parameters for answer generation
const (
	MaxNewTokens       = 1024
	DefaultTemperature = 0.6
	MathTemperature    = 0.3
	DefaultTopP        = 0.9
	RepeatPenalty      = 1.2
)

// StopSequences are the end-of-turn markers that terminate generation
func StopSequences() []string {
	return []string{"</s>", "[INST]"}
}

// GenerationConfig is the sampling configuration for one model runtime call
type GenerationConfig struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	Stop          []string
	Echo          bool
	Mirostat      int // 2 enables repetition-aware adaptive sampling
	RepeatPenalty float64
	Seed          int64 // >0 pins the RNG for deterministic decoding
}

// AnswerConfig returns the generation configuration for answering a
// question, with the temperature conditioned on the classification result.
func AnswerConfig(isMath bool) GenerationConfig {
	temp := DefaultTemperature
	if isMath {
		temp = MathTemperature
	}
	return GenerationConfig{
		MaxTokens:     MaxNewTokens,
		Temperature:   temp,
		TopP:          DefaultTopP,
		Stop:          StopSequences(),
		Echo:          false,
		Mirostat:      2,
		RepeatPenalty: RepeatPenalty,
	}
}

// GenerationResult pairs the produced text with the prompt actually used,
// so callers can do token accounting without shared mutable state.
type GenerationResult struct {
	Text   string
	Prompt string
	IsMath bool
}

// StreamFragment is one increment of a streaming generation. A fragment
// with Err set is terminal.
type StreamFragment struct {
	Text string
	Err  error
	Done bool
}
