package traffic

import "time"

// Default policy constants. The historical implementations disagreed on
// window length and capacity inflation between the dashboard and the
// per-camera views; the values below are the canonical set, and every one
// of them is overridable through Config so the old tunings stay reachable.
const (
	DefaultWindow                = 10 * time.Minute
	DefaultCapacityFactor        = 1.5
	DefaultDailyCapacityFactor   = 1.3
	DefaultDailyCapacityFallback = 20
	DefaultHeavyShare            = 0.15
	DefaultCarShare              = 0.50
	DefaultTrendMinRaw           = 10.0
)

// The deployment targets a single city; hour buckets are computed in its
// fixed +07:00 offset regardless of where the server runs.
const localUTCOffsetHours = 7

// Config carries every tunable of the aggregation pipeline. Zero values
// fall back to the defaults above, so Config{} is usable as-is.
type Config struct {
	// Window is the live look-back interval ending at the anchor time.
	Window time.Duration

	// CapacityFactor inflates a camera's historical maximum into its
	// practical saturation point for the live congestion score.
	CapacityFactor float64

	// DailyCapacityFactor plays the same role for the per-event
	// instantaneous score of the daily chart.
	DailyCapacityFactor float64

	// DailyCapacityFallback is the assumed capacity of a camera that has
	// never been observed.
	DailyCapacityFallback int

	// HeavyShare and CarShare are the weighted-load shares above which a
	// camera is classified "bigcar" respectively "car".
	HeavyShare float64
	CarShare   float64

	// TrendMinRaw is the minimum raw vehicle average below which no trend
	// percentage is computed.
	TrendMinRaw float64

	// Location is the timezone of the daily buckets.
	Location *time.Location

	// Now supplies the wall clock; tests override it.
	Now func() time.Time
}

// DefaultConfig returns the canonical constant set.
func DefaultConfig() Config {
	return Config{
		Window:                DefaultWindow,
		CapacityFactor:        DefaultCapacityFactor,
		DailyCapacityFactor:   DefaultDailyCapacityFactor,
		DailyCapacityFallback: DefaultDailyCapacityFallback,
		HeavyShare:            DefaultHeavyShare,
		CarShare:              DefaultCarShare,
		TrendMinRaw:           DefaultTrendMinRaw,
		Location:              time.FixedZone("UTC+7", localUTCOffsetHours*3600),
		Now:                   time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.CapacityFactor <= 0 {
		c.CapacityFactor = d.CapacityFactor
	}
	if c.DailyCapacityFactor <= 0 {
		c.DailyCapacityFactor = d.DailyCapacityFactor
	}
	if c.DailyCapacityFallback <= 0 {
		c.DailyCapacityFallback = d.DailyCapacityFallback
	}
	if c.HeavyShare <= 0 {
		c.HeavyShare = d.HeavyShare
	}
	if c.CarShare <= 0 {
		c.CarShare = d.CarShare
	}
	if c.TrendMinRaw <= 0 {
		c.TrendMinRaw = d.TrendMinRaw
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
