package validation

import "github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/utils"

// Options tunes Monte Carlo validation
type Options struct {
	// NumSimulations is used when a request does not name a count
	NumSimulations int
	// MaxSimulations caps the count a request may ask for
	MaxSimulations int
	// MinConsistency is used when a request does not name a threshold
	MinConsistency float64
	// MaxConcurrent bounds outstanding simulation calls
	MaxConcurrent int
	Temperature   float64
	MaxTokens     int
	// SampleSize is how many raw outputs a result keeps for audit
	SampleSize int
}

// DefaultOptions returns the options used for zero-valued fields
func DefaultOptions() Options {
	return Options{
		NumSimulations: 100,
		MaxSimulations: utils.MaxSimulations,
		MinConsistency: 0.7,
		MaxConcurrent:  10,
		Temperature:    0.9,
		MaxTokens:      256,
		SampleSize:     10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NumSimulations <= 0 {
		o.NumSimulations = def.NumSimulations
	}
	if o.MaxSimulations <= 0 || o.MaxSimulations > utils.MaxSimulations {
		o.MaxSimulations = def.MaxSimulations
	}
	o.NumSimulations = min(o.NumSimulations, o.MaxSimulations)
	if o.MinConsistency <= 0 || o.MinConsistency > 1 {
		o.MinConsistency = def.MinConsistency
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = def.MaxConcurrent
	}
	if o.Temperature <= 0 {
		o.Temperature = def.Temperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.SampleSize <= 0 {
		o.SampleSize = def.SampleSize
	}
	return o
}
