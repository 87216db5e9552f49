package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// NeutralConcern is the concern label reported when nothing concerning was found.
const NeutralConcern = "safe"

// Severity is the four-level escalation classification attached to a message.
type Severity uint8

const (
	SeveritySafe Severity = iota
	SeverityElevated
	SeverityDistressed
	SeverityImminent

	// NumSeverities is the number of valid severities; tables keyed by Severity use it as their length.
	NumSeverities
)

var severityNames = [NumSeverities]string{
	SeveritySafe:       "SAFE",
	SeverityElevated:   "ELEVATED",
	SeverityDistressed: "DISTRESSED",
	SeverityImminent:   "IMMINENT",
}

var ErrUnknownSeverity = errors.New("unknown severity")

// Severities lists every severity from least to most urgent.
func Severities() []Severity {
	return []Severity{SeveritySafe, SeverityElevated, SeverityDistressed, SeverityImminent}
}

// ParseSeverity accepts the wire names case-insensitively.
func ParseSeverity(raw string) (Severity, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for i, name := range severityNames {
		if name == normalized {
			return Severity(i), nil
		}
	}
	return SeveritySafe, fmt.Errorf("%w: %q", ErrUnknownSeverity, raw)
}

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool {
	return s < NumSeverities
}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, uint8(s))
	}
	return []byte(severityNames[s]), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Concern is a labelled risk category with the classifier's confidence.
type Concern struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Neutral reports whether the concern carries the default "safe" label.
func (c Concern) Neutral() bool {
	return c.Label == "" || strings.EqualFold(c.Label, NeutralConcern)
}

// Analysis is the remote service's classification of one user message.
type Analysis struct {
	Polarity float64  `json:"polarity"`
	Severity Severity `json:"severity"`
	Concern  Concern  `json:"concern"`
	Entities []Entity `json:"entities"`
}

// Validate checks the numeric ranges the service promises.
func (a Analysis) Validate() error {
	if a.Polarity < -1 || a.Polarity > 1 {
		return fmt.Errorf("polarity %v out of range [-1, 1]", a.Polarity)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSeverity, uint8(a.Severity))
	}
	if a.Concern.Confidence < 0 || a.Concern.Confidence > 1 {
		return fmt.Errorf("concern confidence %v out of range [0, 1]", a.Concern.Confidence)
	}
	return nil
}

// Clone returns a copy that shares no slices with a.
func (a Analysis) Clone() Analysis {
	a.Entities = CloneEntities(a.Entities)
	return a
}
