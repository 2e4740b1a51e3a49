package screen

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile names. Exactly one profile is active per scan cycle.
const (
	ProfilePremarket = "premarket"
	ProfileLive      = "live"
)

// Breakout conjunction modes for the volume-spike / prior-day-breakout pair
const (
	BreakoutAny = "any" // either gate alone suffices
	BreakoutAll = "all" // both gates must pass
)

// Strategy is the screening strategy file: threshold profiles, indicator
// gates and the trading calendar. Loaded strictly; unknown fields fail the
// load so a corrupted deployment surfaces immediately.
type Strategy struct {
	Calendar     Calendar           `yaml:"calendar"`
	PremarketEnd string             `yaml:"premarket_end"` // HH:MM; earlier times select the premarket profile
	Profiles     map[string]Profile `yaml:"profiles"`
}

// Calendar holds the scheduler guard's exclusion set and session window
type Calendar struct {
	Holidays       []string `yaml:"holidays"`        // YYYY-MM-DD
	ClosedWeekdays []string `yaml:"closed_weekdays"` // e.g. [SAT, SUN]
	Open           string   `yaml:"open"`            // HH:MM inclusive
	Close          string   `yaml:"close"`           // HH:MM inclusive
}

// Profile is one named threshold configuration
type Profile struct {
	MinChangePercent float64 `yaml:"min_change_percent"`
	MinVolume        int64   `yaml:"min_volume"`

	// Volume gates; conjunction between them set by BreakoutMode
	VolumeSpike   *VolumeSpikeGate   `yaml:"volume_spike"`
	PriorBreakout *PriorBreakoutGate `yaml:"prior_breakout"`
	BreakoutMode  string             `yaml:"breakout_mode"` // any (default) | all

	// Indicator gates, each independently togglable by presence
	PriceAboveMA    *PriceAboveMAGate    `yaml:"price_above_ma"`
	RSIBand         *RSIBandGate         `yaml:"rsi_band"`
	MACD            *MACDGate            `yaml:"macd"`
	Stochastic      *StochasticGate      `yaml:"stochastic"`
	BollingerUpper  *BollingerUpperGate  `yaml:"bollinger_upper"`
	ATRPercent      *ATRPercentGate      `yaml:"atr_percent"`
	ChannelBreakout *ChannelBreakoutGate `yaml:"channel_breakout"`
}

// VolumeSpikeGate: today's volume ≥ Ratio × trailing Period-day average
// volume, excluding today
type VolumeSpikeGate struct {
	Period int     `yaml:"period"`
	Ratio  float64 `yaml:"ratio"`
}

// PriorBreakoutGate: prior day's volume ≥ Ratio × its own trailing average,
// or today's high exceeds prior day's high
type PriorBreakoutGate struct {
	Period int     `yaml:"period"`
	Ratio  float64 `yaml:"ratio"`
}

// PriceAboveMAGate: last price above the Period moving average
type PriceAboveMAGate struct {
	Period int `yaml:"period"`
}

// RSIBandGate: oscillator within [Min, Max]
type RSIBandGate struct {
	Period int     `yaml:"period"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// MACDGate: trend indicator positive and/or freshly golden-crossed
type MACDGate struct {
	Fast            int  `yaml:"fast"`
	Slow            int  `yaml:"slow"`
	Signal          int  `yaml:"signal"`
	RequirePositive bool `yaml:"require_positive"`
	RequireGolden   bool `yaml:"require_golden"`
}

// StochasticGate: %K over %D and both above the midline
type StochasticGate struct {
	K int `yaml:"k"`
	D int `yaml:"d"`
}

// BollingerUpperGate: price at/above the upper volatility band
type BollingerUpperGate struct {
	Period int     `yaml:"period"`
	Mult   float64 `yaml:"mult"`
}

// ATRPercentGate: ATR as percent of price above a floor
type ATRPercentGate struct {
	Period     int     `yaml:"period"`
	MinPercent float64 `yaml:"min_percent"`
}

// ChannelBreakoutGate: price at/above the Period-channel upper bound
type ChannelBreakoutGate struct {
	Period int `yaml:"period"`
}

// LoadStrategy reads and validates the strategy YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadStrategy(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}

	var s Strategy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode strategy file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy file: %w", err)
	}

	return &s, nil
}

// Validate checks the strategy for deployment-breaking mistakes
func (s *Strategy) Validate() error {
	for _, name := range []string{ProfilePremarket, ProfileLive} {
		p, ok := s.Profiles[name]
		if !ok {
			return fmt.Errorf("profile %q missing", name)
		}
		if p.MinChangePercent < 0 {
			return fmt.Errorf("profile %q: min_change_percent must not be negative", name)
		}
		if p.MinVolume < 0 {
			return fmt.Errorf("profile %q: min_volume must not be negative", name)
		}
		if p.BreakoutMode != "" && p.BreakoutMode != BreakoutAny && p.BreakoutMode != BreakoutAll {
			return fmt.Errorf("profile %q: breakout_mode must be %q or %q", name, BreakoutAny, BreakoutAll)
		}
	}

	if s.PremarketEnd != "" {
		if _, err := parseClock(s.PremarketEnd); err != nil {
			return fmt.Errorf("premarket_end: %w", err)
		}
	}

	for _, h := range s.Calendar.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("holiday %q: %w", h, err)
		}
	}

	for _, field := range []string{s.Calendar.Open, s.Calendar.Close} {
		if field == "" {
			continue
		}
		if _, err := parseClock(field); err != nil {
			return fmt.Errorf("calendar window: %w", err)
		}
	}

	return nil
}

// SelectProfile returns the active profile for a cycle: the explicit
// override when given, otherwise premarket before the boundary, live after.
func (s *Strategy) SelectProfile(now time.Time, override string) (string, Profile, error) {
	if override != "" {
		p, ok := s.Profiles[override]
		if !ok {
			return "", Profile{}, fmt.Errorf("unknown profile %q", override)
		}
		return override, p, nil
	}

	name := ProfileLive
	if s.PremarketEnd != "" {
		boundary, err := parseClock(s.PremarketEnd)
		if err == nil && minutesOfDay(now) < boundary {
			name = ProfilePremarket
		}
	}

	return name, s.Profiles[name], nil
}

// parseClock parses HH:MM into minutes since midnight
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// minutesOfDay returns the local minutes since midnight
func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
