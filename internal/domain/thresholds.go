package domain

// Risk thresholds. HighTemp is in degrees C, HighLitter in percent cover.
const (
	DefaultHighTemp   = 33.0
	DefaultHighLitter = 55.0
)

// Thresholds are the cutoffs applied by the risk classifier. A cell passes
// a threshold when its value is strictly greater than the cutoff.
type Thresholds struct {
	HighTemp   float64
	HighLitter float64
}

// DefaultThresholds returns HighTemp=33 and HighLitter=55.
func DefaultThresholds() Thresholds {
	return Thresholds{HighTemp: DefaultHighTemp, HighLitter: DefaultHighLitter}
}
