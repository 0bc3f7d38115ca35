// Package sample turns raw EEG band-power telemetry into bounded focus samples.
package sample

import (
	"encoding/json"
	"math"
	"time"
)

// Engagement is normalized linearly across this range; values outside it clamp.
const (
	MinEngagement = 0.5
	MaxEngagement = 3.0
)

// Hemisphere key prefixes used by the stream payload, e.g. "Left__alpha".
const (
	Left  = "Left"
	Right = "Right"
)

// Sample is a single normalized focus reading. It is immutable once created.
type Sample struct {
	Timestamp          time.Time `json:"timestamp"`
	FocusScore         int       `json:"focusScore"`
	WeightedEngagement *float64  `json:"weightedEngagement,omitempty"`
	Quality            *float64  `json:"quality,omitempty"`
	LeftEngagement     *float64  `json:"leftEngagement,omitempty"`
	RightEngagement    *float64  `json:"rightEngagement,omitempty"`
	TotalPower         float64   `json:"totalPower,omitempty"`
}

// Raw is one decoded stream record: string keys mapped to (mostly) numeric values.
type Raw map[string]any

// hemisphere holds the derived values for one side of the payload.
type hemisphere struct {
	engagement *float64 // nil when alpha+theta is not positive
	totalPower float64
}

// Decode parses a JSON text frame and normalizes it.
// Malformed frames and rejected payloads both report false.
func Decode(data []byte, now time.Time) (Sample, bool) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Sample{}, false
	}
	return Normalize(raw, now)
}

// Normalize converts raw into a Sample. It reports false when neither
// hemisphere yields an engagement value. now is used when raw carries no
// usable "time" field.
func Normalize(raw Raw, now time.Time) (Sample, bool) {
	if raw == nil {
		return Sample{}, false
	}
	left := computeHemisphere(raw, Left)
	right := computeHemisphere(raw, Right)

	weighted, ok := weightedEngagement(left, right)
	if !ok || math.IsNaN(weighted) {
		return Sample{}, false
	}
	normalized := normalizeEngagement(weighted)

	pBad := math.Max(number(raw[Left+"__p_bad"]), number(raw[Right+"__p_bad"]))
	quality := 1 - clamp01(pBad)

	return Sample{
		Timestamp:          timestamp(raw["time"], now),
		FocusScore:         int(math.Round(normalized * 100)),
		WeightedEngagement: &weighted,
		Quality:            &quality,
		LeftEngagement:     left.engagement,
		RightEngagement:    right.engagement,
		TotalPower:         left.totalPower + right.totalPower,
	}, true
}

func computeHemisphere(raw Raw, prefix string) hemisphere {
	alpha := number(raw[prefix+"__alpha"])
	theta := number(raw[prefix+"__theta"])
	beta := number(raw[prefix+"__beta"])
	gamma := number(raw[prefix+"__gamma"])
	h := hemisphere{totalPower: number(raw[prefix+"__total_power"])}
	if denom := alpha + theta; denom > 0 {
		e := (beta + gamma) / denom
		h.engagement = &e
	}
	return h
}

// weightedEngagement combines both hemispheres, weighting each by its share
// of the combined total power.
func weightedEngagement(left, right hemisphere) (float64, bool) {
	if left.engagement == nil && right.engagement == nil {
		return 0, false
	}
	total := left.totalPower + right.totalPower
	if total <= 0 || left.engagement == nil || right.engagement == nil {
		if left.engagement != nil {
			return *left.engagement, true
		}
		return *right.engagement, true
	}
	lw := left.totalPower / total
	rw := right.totalPower / total
	return lw*(*left.engagement) + rw*(*right.engagement), true
}

func normalizeEngagement(v float64) float64 {
	clamped := math.Min(math.Max(v, MinEngagement), MaxEngagement)
	return (clamped - MinEngagement) / (MaxEngagement - MinEngagement)
}

// timestamp interprets v as fractional seconds since the epoch.
func timestamp(v any, now time.Time) time.Time {
	secs, ok := asFloat(v)
	if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return now
	}
	ms := secs * 1000
	if ms >= math.MaxInt64 || ms < math.MinInt64 {
		return now
	}
	return time.UnixMilli(int64(ms))
}

// number coerces missing or non-numeric values to zero.
func number(v any) float64 {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return f
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
