package api

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
)

// wireID is sent as a JSON number when it is a canonical integer, matching
// backends that hand out integer row ids, and as a string otherwise.
type wireID string

func (id wireID) MarshalJSON() ([]byte, error) {
	// Only canonical integers travel as numbers; "007" or "+5" stay strings.
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return sonic.Marshal(string(id))
}

func (id *wireID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := sonic.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(trimmed), 64); err != nil {
		return fmt.Errorf("user_id must be a string or number, got %s", trimmed)
	}
	*id = wireID(trimmed)
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	UserID  wireID `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

type consentRequest struct {
	UserID         wireID `json:"user_id"`
	EmergencyPhone string `json:"emergency_phone,omitempty"`
}

type messageRequest struct {
	UserID      wireID `json:"user_id"`
	MessageText string `json:"message_text"`
}

type messageResponse struct {
	BotReply *string          `json:"bot_reply"`
	Analysis *analysisPayload `json:"analysis"`
}

type analysisPayload struct {
	Polarity        *float64           `json:"polarity"`
	Severity        string             `json:"severity"`
	SentimentScores map[string]float64 `json:"sentiment_scores,omitempty"`
	Entities        []entityPayload    `json:"entities"`
	Concern         *concernPayload    `json:"concern"`
}

type entityPayload struct {
	Text  string `json:"text"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label"`
}

type concernPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type trendResponse struct {
	Trend   []trendPointPayload  `json:"trend"`
	Summary *trendSummaryPayload `json:"summary"`
}

type trendPointPayload struct {
	Index          int     `json:"index"`
	Polarity       float64 `json:"polarity"`
	MessagePreview string  `json:"message_preview"`
}

type trendSummaryPayload struct {
	TotalMessages int     `json:"total_messages"`
	CurrentMood   float64 `json:"current_mood"`
	MoodTrend     string  `json:"mood_trend"`
	MoodSlope     float64 `json:"mood_slope"`
}

func (p messageResponse) toReply() (Reply, error) {
	if p.BotReply == nil || strings.TrimSpace(*p.BotReply) == "" {
		return Reply{}, fmt.Errorf("missing bot_reply")
	}
	if p.Analysis == nil {
		return Reply{}, fmt.Errorf("missing analysis")
	}

	result, err := p.Analysis.toAnalysis()
	if err != nil {
		return Reply{}, err
	}
	return Reply{BotReply: *p.BotReply, Analysis: result}, nil
}

func (p analysisPayload) toAnalysis() (analysis.Analysis, error) {
	if p.Polarity == nil {
		return analysis.Analysis{}, fmt.Errorf("missing analysis.polarity")
	}

	severity, err := analysis.ParseSeverity(p.Severity)
	if err != nil {
		return analysis.Analysis{}, err
	}

	concern := analysis.Concern{Label: analysis.NeutralConcern}
	if p.Concern != nil {
		concern.Confidence = p.Concern.Confidence
		if label := strings.TrimSpace(p.Concern.Label); label != "" {
			concern.Label = label
		}
	}

	entities := make([]analysis.Entity, 0, len(p.Entities))
	for _, e := range p.Entities {
		label := e.Label
		if label == "" {
			label = e.Type
		}
		entities = append(entities, analysis.Entity{
			Text:  e.Text,
			Label: analysis.ParseEntityLabel(label),
		})
	}

	result := analysis.Analysis{
		Polarity: *p.Polarity,
		Severity: severity,
		Concern:  concern,
		Entities: entities,
	}
	if err := result.Validate(); err != nil {
		return analysis.Analysis{}, err
	}
	return result, nil
}

func (p trendResponse) toResult() (TrendResult, error) {
	points := make([]trend.Point, 0, len(p.Trend))
	for _, raw := range p.Trend {
		if raw.Polarity < -1 || raw.Polarity > 1 {
			return TrendResult{}, fmt.Errorf("trend point %d polarity %v out of range", raw.Index, raw.Polarity)
		}
		points = append(points, trend.Point{
			Index:          raw.Index,
			Polarity:       raw.Polarity,
			MessagePreview: raw.MessagePreview,
		})
	}

	if p.Summary == nil {
		return TrendResult{Points: points}, nil
	}

	direction, err := trend.ParseDirection(p.Summary.MoodTrend)
	if err != nil {
		return TrendResult{}, err
	}
	if p.Summary.TotalMessages < 0 {
		return TrendResult{}, fmt.Errorf("negative total_messages %d", p.Summary.TotalMessages)
	}

	return TrendResult{
		Points: points,
		Summary: &trend.Summary{
			TotalMessages: p.Summary.TotalMessages,
			CurrentMood:   p.Summary.CurrentMood,
			MoodTrend:     direction,
			MoodSlope:     p.Summary.MoodSlope,
		},
	}, nil
}
