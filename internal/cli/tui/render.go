package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/internal/model/chat"
	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
	"github.com/zhouzirui/mindpeers/client/internal/service/health"
	"github.com/zhouzirui/mindpeers/client/internal/service/severity"
	trendsvc "github.com/zhouzirui/mindpeers/client/internal/service/trend"
)

const (
	analyzingText    = "Analyzing your message..."
	emptyTrendTitle  = "No sentiment data yet"
	emptyTrendDetail = "Start chatting to see your mood trends"
	timeLayout       = "15:04"
)

// Suggestions are offered when the input is empty; Tab cycles through them.
var Suggestions = []string{
	"I'm feeling anxious today",
	"Work has been really stressful lately",
	"I haven't been sleeping well",
	"I just need someone to talk to",
}

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	badgeStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// PolarityFace is the sentiment face shown on a user message.
func PolarityFace(polarity float64) string {
	switch {
	case polarity > 0:
		return "😊"
	case polarity < -0.3:
		return "😔"
	default:
		return "😐"
	}
}

// MoodFace is the face shown for the current mood in the trend summary.
func MoodFace(mood float64) string {
	switch {
	case mood > 0.1:
		return "😊"
	case mood < -0.1:
		return "😔"
	default:
		return "😐"
	}
}

// TrendIcon maps a direction to its arrow.
func TrendIcon(d trend.Direction) string {
	switch d {
	case trend.Improving:
		return "📈"
	case trend.Declining:
		return "📉"
	default:
		return "➖"
	}
}

// FormatSlope renders a slope with an explicit sign for positive values.
func FormatSlope(slope float64) string {
	if slope > 0 {
		return fmt.Sprintf("+%.3f", slope)
	}
	return fmt.Sprintf("%.3f", slope)
}

// RenderBanner draws the safety banner, with resources underneath when the
// severity carries them.
func RenderBanner(b severity.Banner, width int) string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(b.Color)).
		Align(lipgloss.Center).
		Width(maxInt(width, 20))

	out := style.Render(fmt.Sprintf("%s %s %s", b.Icon, b.Headline, b.Icon))
	if b.HasResources() {
		resources := lipgloss.NewStyle().
			Foreground(lipgloss.Color(b.Color)).
			Width(maxInt(width, 20)).
			Render(b.Resources)
		out += "\n" + resources
	}
	return out
}

// RenderStatus draws the connection indicator.
func RenderStatus(status health.Status) string {
	switch status {
	case health.StatusConnected:
		return accentStyle.Render("● " + string(status))
	case health.StatusDisconnected:
		return errorStyle.Render("● " + string(status))
	default:
		return dimStyle.Render("○ " + string(status))
	}
}

// RenderSeverityBadge draws a coloured severity label.
func RenderSeverityBadge(s analysis.Severity) string {
	b := severity.BannerFor(s)
	return badgeStyle.
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(b.Color)).
		Render(s.String())
}

// RenderMessage draws one conversation turn.
func RenderMessage(m chat.Message, width int) string {
	var sb strings.Builder

	switch {
	case m.IsError:
		sb.WriteString(errorStyle.Render("MindPeers"))
	case m.IsBot():
		sb.WriteString(accentStyle.Render("MindPeers"))
	default:
		sb.WriteString(userStyle.Render("You"))
	}
	sb.WriteString(dimStyle.Render("  " + m.Timestamp.Local().Format(timeLayout)))
	sb.WriteString("\n")

	body := lipgloss.NewStyle().Width(maxInt(width-2, 10))
	if m.IsError {
		body = body.Foreground(lipgloss.Color("196"))
	}
	sb.WriteString(body.Render(m.Text))

	if m.Analysis != nil {
		sb.WriteString("\n")
		if m.IsBot() {
			sb.WriteString(dimStyle.Render("Analysis: "))
			sb.WriteString(RenderSeverityBadge(m.Analysis.Severity))
		} else {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("Sentiment: %s • Score: %.3f",
				PolarityFace(m.Analysis.Polarity), m.Analysis.Polarity)))
			if !m.Analysis.Concern.Neutral() {
				sb.WriteString(dimStyle.Render(fmt.Sprintf(" • Concern: %s (%.0f%%)",
					m.Analysis.Concern.Label, m.Analysis.Concern.Confidence*100)))
			}
			if len(m.Entities) > 0 {
				sb.WriteString("\n")
				sb.WriteString(renderEntities(m.Entities))
			}
		}
	}
	return sb.String()
}

func renderEntities(entities []analysis.Entity) string {
	badges := make([]string, 0, len(entities))
	for _, e := range entities {
		badges = append(badges, badgeStyle.
			Foreground(lipgloss.Color("63")).
			Render(fmt.Sprintf("%s · %s", e.Text, e.Label)))
	}
	return strings.Join(badges, " ")
}

// RenderConversation draws the whole message list, or the welcome text when
// it is empty. The analyzing indicator trails the list while a send is out.
func RenderConversation(messages []chat.Message, inFlight bool, width int) string {
	if len(messages) == 0 && !inFlight {
		return renderWelcome(width)
	}

	parts := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		parts = append(parts, RenderMessage(m, width))
	}
	if inFlight {
		parts = append(parts, dimStyle.Render("• • • "+analyzingText))
	}
	return strings.Join(parts, "\n\n")
}

func renderWelcome(width int) string {
	center := lipgloss.NewStyle().Width(maxInt(width, 20)).Align(lipgloss.Center)
	lines := []string{
		"💬",
		boldStyle.Render("Welcome to your safe space"),
		"This is a confidential space where you can share your thoughts and feelings.",
		"I'm here to listen without judgment.",
		"",
		dimStyle.Render("💡 Tip: press Tab for a conversation starter."),
	}
	return center.Render(strings.Join(lines, "\n"))
}

// RenderTrend draws the trend view for state.
func RenderTrend(state trendsvc.State, width int) string {
	switch state.Status {
	case trendsvc.StatusIdle, trendsvc.StatusLoading:
		return dimStyle.Render("Loading your mood timeline...")
	case trendsvc.StatusError:
		return strings.Join([]string{
			"❌ " + boldStyle.Render("Error loading trends"),
			errorStyle.Render(state.Err),
			"",
			dimStyle.Render("Press r to Try Again"),
		}, "\n")
	}

	if state.Empty() {
		return strings.Join([]string{
			"📊 " + boldStyle.Render(emptyTrendTitle),
			dimStyle.Render(emptyTrendDetail),
		}, "\n")
	}

	var sb strings.Builder
	sb.WriteString(boldStyle.Render("Mood Timeline"))
	sb.WriteString(dimStyle.Render("  Your emotional journey"))
	sb.WriteString("\n\n")

	if s := state.Summary; s != nil {
		sb.WriteString(fmt.Sprintf("Messages: %d   Current mood: %s   %s Mood %s (%s change)\n\n",
			s.TotalMessages, MoodFace(s.CurrentMood), TrendIcon(s.MoodTrend), s.MoodTrend, FormatSlope(s.MoodSlope)))
	}

	previewWidth := maxInt(width-24, 16)
	for _, p := range state.Points {
		sb.WriteString(fmt.Sprintf("%4d  %s  %s  %s\n",
			p.Index, polarityBar(p.Polarity), fmt.Sprintf("%+.3f", p.Polarity),
			runewidth.Truncate(p.MessagePreview, previewWidth, "…")))
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("r refresh • ctrl+t back to chat"))
	return sb.String()
}

// polarityBar draws a fixed-width bar centred on zero.
func polarityBar(polarity float64) string {
	const half = 5
	cells := int(polarity*half + 0.5*sign(polarity))
	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	switch {
	case cells < 0:
		n := minInt(-cells, half)
		left = strings.Repeat(" ", half-n) + strings.Repeat("█", n)
	case cells > 0:
		n := minInt(cells, half)
		right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
	}
	return left + "│" + right
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
