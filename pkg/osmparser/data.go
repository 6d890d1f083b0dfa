package osmparser

import (
	"strconv"
	"strings"
)

var (
	acceptedHighway = map[string]struct{}{
		"motorway":         struct{}{},
		"motorway_link":    struct{}{},
		"trunk":            struct{}{},
		"trunk_link":       struct{}{},
		"primary":          struct{}{},
		"primary_link":     struct{}{},
		"secondary":        struct{}{},
		"secondary_link":   struct{}{},
		"residential":      struct{}{},
		"residential_link": struct{}{},
		"service":          struct{}{},
		"tertiary":         struct{}{},
		"tertiary_link":    struct{}{},
		"road":             struct{}{},
		"track":            struct{}{},
		"unclassified":     struct{}{},
		"living_street":    struct{}{},
		"motorroad":        struct{}{},
	}

	// km/h
	highwayDefaultSpeed = map[string]float64{
		"motorway":         95,
		"motorway_link":    60,
		"trunk":            80,
		"trunk_link":       50,
		"primary":          60,
		"primary_link":     45,
		"secondary":        50,
		"secondary_link":   40,
		"tertiary":         40,
		"tertiary_link":    35,
		"unclassified":     30,
		"residential":      30,
		"residential_link": 30,
		"living_street":    10,
		"service":          20,
		"road":             30,
		"track":            15,
		"motorroad":        70,
	}
)

const fallbackSpeed = 30.0

// wayEdge is one directed segment between two consecutive way nodes.
type wayEdge struct {
	from, to int64
}

type osmWay struct {
	id       int64
	nodes    []int64
	forward  bool
	backward bool
	speed    float64 // km/h
	bridgeID string
}

func roadTypeSpeed(highway string) float64 {
	if s, ok := highwayDefaultSpeed[highway]; ok {
		return s
	}
	return fallbackSpeed
}

// parseMaxSpeed returns the maxspeed tag value in km/h. ok is false for values like "signals" or "none".
func parseMaxSpeed(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	factor := 1.0
	switch {
	case strings.HasSuffix(value, "mph"):
		value = strings.TrimSuffix(value, "mph")
		factor = 1.60934
	case strings.HasSuffix(value, "km/h"):
		value = strings.TrimSuffix(value, "km/h")
	case strings.HasSuffix(value, "kmh"):
		value = strings.TrimSuffix(value, "kmh")
	case strings.HasSuffix(value, "knots"):
		value = strings.TrimSuffix(value, "knots")
		factor = 1.852
	}

	speed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || speed <= 0 {
		return 0, false
	}
	return speed * factor, true
}
