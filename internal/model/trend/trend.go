package trend

import (
	"fmt"
	"math"
	"strings"
)

// Direction describes where the user's mood is heading.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// slopeThreshold separates a real movement from noise when summarising a series.
const slopeThreshold = 0.05

// ParseDirection accepts the wire names case-insensitively.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Improving:
		return Improving, nil
	case Declining:
		return Declining, nil
	case Stable:
		return Stable, nil
	default:
		return "", fmt.Errorf("unknown mood trend %q", raw)
	}
}

// Point is one classified message in the mood timeline.
type Point struct {
	Index          int     `json:"index"`
	Polarity       float64 `json:"polarity"`
	MessagePreview string  `json:"message_preview"`
}

// Summary holds the statistics derived from a trend series.
type Summary struct {
	TotalMessages int       `json:"total_messages"`
	CurrentMood   float64   `json:"current_mood"`
	MoodTrend     Direction `json:"mood_trend"`
	MoodSlope     float64   `json:"mood_slope"`
}

// Summarize derives a Summary from points using a least-squares slope over
// the point index. It returns nil for an empty series.
func Summarize(points []Point) *Summary {
	if len(points) == 0 {
		return nil
	}

	slope := leastSquaresSlope(points)
	direction := Stable
	switch {
	case slope > slopeThreshold:
		direction = Improving
	case slope < -slopeThreshold:
		direction = Declining
	}

	return &Summary{
		TotalMessages: len(points),
		CurrentMood:   points[len(points)-1].Polarity,
		MoodTrend:     direction,
		MoodSlope:     math.Round(slope*1000) / 1000,
	}
}

func leastSquaresSlope(points []Point) float64 {
	n := float64(len(points))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.Index)
		sumX += x
		sumY += p.Polarity
		sumXY += x * p.Polarity
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}
