package reasoning

// Options tunes path generation, evaluation and selection
type Options struct {
	// NumPaths is the number of independent paths requested per query
	NumPaths int
	// MaxConcurrent bounds outstanding generation calls
	MaxConcurrent int
	// EvalWeight and ConfWeight weigh the evaluation and confidence scores
	EvalWeight float64
	ConfWeight float64
	// Path i of n is sampled at BaseTemperature + TemperatureSpread*i/(n-1)
	BaseTemperature   float64
	TemperatureSpread float64
	MaxTokens         int
	// Evaluation calls ask for a single number
	EvalTemperature float64
	EvalMaxTokens   int
}

// DefaultOptions returns the options used for zero-valued fields
func DefaultOptions() Options {
	return Options{
		NumPaths:          5,
		MaxConcurrent:     3,
		EvalWeight:        0.6,
		ConfWeight:        0.4,
		BaseTemperature:   0.7,
		TemperatureSpread: 0.3,
		MaxTokens:         1024,
		EvalTemperature:   0.1,
		EvalMaxTokens:     16,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NumPaths <= 0 {
		o.NumPaths = def.NumPaths
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = def.MaxConcurrent
	}
	if o.EvalWeight == 0 && o.ConfWeight == 0 {
		o.EvalWeight, o.ConfWeight = def.EvalWeight, def.ConfWeight
	}
	if o.BaseTemperature == 0 && o.TemperatureSpread == 0 {
		o.BaseTemperature, o.TemperatureSpread = def.BaseTemperature, def.TemperatureSpread
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.EvalTemperature <= 0 {
		o.EvalTemperature = def.EvalTemperature
	}
	if o.EvalMaxTokens <= 0 {
		o.EvalMaxTokens = def.EvalMaxTokens
	}
	return o
}
