package geocoder

import "log"

// MemUse selects how much memory the record caches may use.
type MemUse int

const (
	MemUseNormal MemUse = iota
	MemUseSmall
	MemUseLarge
)

// cacheScale maps a MemUse tier to a cache size multiplier.
func (m MemUse) cacheScale() float64 {
	switch m {
	case MemUseSmall:
		return 0.33
	case MemUseLarge:
		return 3.0
	}
	return 1.0
}

// StreetOwnerPolicy resolves a disagreement between the last line the
// caller typed and the CityStatePostcode that structurally owns the
// matched street.
type StreetOwnerPolicy int

const (
	// StreetOwnerDefault picks per country: street-owner-wins for US,
	// last-line-wins for Canada.
	StreetOwnerDefault StreetOwnerPolicy = iota
	StreetOwnerWins
	LastLineWins
)

// Config carries the engine tunables. All fields have working defaults;
// the scoring constants are tunable parameters, not contracts.
type Config struct {
	MatchThreshold         int     // minimum 0-1000 score for a result
	MultipleMatchThreshold int     // score gap under which two results tie
	StreetOffsetFeet       float64 // perpendicular offset from the centerline
	EndpointOffsetFeet     float64 // pull-back from segment endpoints
	MinInterpolation       float64 // extrapolation window low bound
	MaxInterpolation       float64 // extrapolation window high bound
	OwnerPolicy            StreetOwnerPolicy
	MemUse                 MemUse
	ErrorSink              func(msg string)
}

// Option configures a Geocoder or Query.
type Option func(*Config)

func defaultGeocoderConfig() *Config {
	return &Config{
		MatchThreshold:         800,
		MultipleMatchThreshold: 25,
		StreetOffsetFeet:       50,
		EndpointOffsetFeet:     0,
		MinInterpolation:       -1.0,
		MaxInterpolation:       2.0,
		OwnerPolicy:            StreetOwnerDefault,
		MemUse:                 MemUseNormal,
		ErrorSink: func(msg string) {
			log.Printf("geocoder: %s", msg)
		},
	}
}

// WithMatchThreshold sets the minimum combined score (0-1000) a
// candidate needs to become a result.
func WithMatchThreshold(v int) Option {
	return func(c *Config) { c.MatchThreshold = v }
}

// WithMultipleMatchThreshold sets the score gap under which the top two
// results are reported as a multiple match.
func WithMultipleMatchThreshold(v int) Option {
	return func(c *Config) { c.MultipleMatchThreshold = v }
}

// WithStreetOffset sets the perpendicular offset, in feet, applied to
// street-address results toward the matched side of the street.
func WithStreetOffset(feet float64) Option {
	return func(c *Config) { c.StreetOffsetFeet = feet }
}

// WithEndpointOffset sets how far, in feet, interpolated points are
// pulled back from segment endpoints.
func WithEndpointOffset(feet float64) Option {
	return func(c *Config) { c.EndpointOffsetFeet = feet }
}

// WithInterpolationWindow clamps the address interpolation fraction.
func WithInterpolationWindow(min, max float64) Option {
	return func(c *Config) {
		c.MinInterpolation = min
		c.MaxInterpolation = max
	}
}

// WithStreetOwnerPolicy sets the last-line reconciliation policy.
func WithStreetOwnerPolicy(p StreetOwnerPolicy) Option {
	return func(c *Config) { c.OwnerPolicy = p }
}

// WithMemUse sets the cache sizing tier.
func WithMemUse(m MemUse) Option {
	return func(c *Config) { c.MemUse = m }
}

// WithErrorSink installs the callback that receives human-readable
// open-time and format-error messages.
func WithErrorSink(sink func(msg string)) Option {
	return func(c *Config) {
		if sink != nil {
			c.ErrorSink = sink
		}
	}
}
