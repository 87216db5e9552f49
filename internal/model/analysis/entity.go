package analysis

import "strings"

// EntityLabel tags an extracted span with a life domain.
type EntityLabel string

const (
	LabelWork         EntityLabel = "Work"
	LabelSchool       EntityLabel = "School"
	LabelFamily       EntityLabel = "Family"
	LabelRelationship EntityLabel = "Relationship"
	LabelPerson       EntityLabel = "Person"
	LabelLocation     EntityLabel = "Location"
	LabelHealth       EntityLabel = "Health"
	LabelFinancial    EntityLabel = "Financial"
	LabelOther        EntityLabel = "Other"
)

var knownLabels = map[string]EntityLabel{
	"work":         LabelWork,
	"organization": LabelWork,
	"org":          LabelWork,
	"school":       LabelSchool,
	"family":       LabelFamily,
	"relationship": LabelRelationship,
	"person":       LabelPerson,
	"location":     LabelLocation,
	"gpe":          LabelLocation,
	"health":       LabelHealth,
	"financial":    LabelFinancial,
	"other":        LabelOther,
}

// ParseEntityLabel maps a service label onto the known set; anything unrecognised becomes Other.
func ParseEntityLabel(raw string) EntityLabel {
	if label, ok := knownLabels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return label
	}
	return LabelOther
}

// Entity is a named span extracted from user text.
type Entity struct {
	Text  string      `json:"text"`
	Label EntityLabel `json:"label"`
}

// CloneEntities copies src. A nil input stays nil so "absent" survives the copy.
func CloneEntities(src []Entity) []Entity {
	if src == nil {
		return nil
	}
	out := make([]Entity, len(src))
	copy(out, src)
	return out
}
