package severity

import "github.com/zhouzirui/mindpeers/client/internal/model/analysis"

// Tone is the register a banner speaks in.
type Tone string

const (
	ToneAffirming  Tone = "affirming"
	ToneCautionary Tone = "cautionary"
	ToneWarning    Tone = "warning"
	ToneAlert      Tone = "alert"
)

// Banner is the fixed display content for one severity.
// Resources is empty for states that carry no crisis information.
type Banner struct {
	Severity  analysis.Severity
	Tone      Tone
	Icon      string
	Headline  string
	Resources string
	Color     string
}

// HasResources reports whether the banner carries support or hotline text.
func (b Banner) HasResources() bool {
	return b.Resources != ""
}

// banners is indexed by severity; its length is pinned to NumSeverities below
// so adding a severity without content fails to compile.
var banners = [...]Banner{
	analysis.SeveritySafe: {
		Severity: analysis.SeveritySafe,
		Tone:     ToneAffirming,
		Icon:     "✅",
		Headline: "You're in a safe space. Feel free to share what's on your mind.",
		Color:    "#22c55e",
	},
	analysis.SeverityElevated: {
		Severity: analysis.SeverityElevated,
		Tone:     ToneCautionary,
		Icon:     "🔍",
		Headline: "Elevated concern detected - We are listening",
		Color:    "#eab308",
	},
	analysis.SeverityDistressed: {
		Severity:  analysis.SeverityDistressed,
		Tone:      ToneWarning,
		Icon:      "⚠️",
		Headline:  "High distress detected - We are here for you",
		Resources: "Support Resources: You're not alone. Consider reaching out to a mental health professional or trusted person in your life.",
		Color:     "#f97316",
	},
	analysis.SeverityImminent: {
		Severity:  analysis.SeverityImminent,
		Tone:      ToneAlert,
		Icon:      "🚨",
		Headline:  "IMMINENT RISK DETECTED - Please seek immediate help",
		Resources: "Crisis Resources: National Suicide Prevention Lifeline: 988 (US) | Emergency: 911 | Crisis Text Line: Text HOME to 741741",
		Color:     "#dc2626",
	},
}

// Compile-time check: one banner per severity, no more and no fewer.
var _ = [1]struct{}{}[len(banners)-int(analysis.NumSeverities)]

// BannerFor returns the content for s. An invalid severity yields the SAFE
// banner; the machine never stores one.
func BannerFor(s analysis.Severity) Banner {
	if !s.Valid() {
		return banners[analysis.SeveritySafe]
	}
	return banners[s]
}
