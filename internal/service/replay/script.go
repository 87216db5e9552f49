package replay

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
)

//go:embed default_script.yaml
var defaultScript []byte

// keywordWeight is the score a rule earns for each keyword found in a message.
const keywordWeight = 3

var ErrEmptyScript = errors.New("script has no default reply")

// Rule is one canned response and the keywords that select it.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
	Polarity float64  `yaml:"polarity"`
	Severity string   `yaml:"severity"`
	Concern  struct {
		Label      string  `yaml:"label"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"concern"`

	severity analysis.Severity
}

// EntityRule tags any message containing Text with Label.
type EntityRule struct {
	Text  string `yaml:"text"`
	Label string `yaml:"label"`
}

// Script is a deterministic replay table.
type Script struct {
	Default  Rule         `yaml:"default"`
	Rules    []Rule       `yaml:"rules"`
	Entities []EntityRule `yaml:"entities"`
}

// Response is what the script answers for one message.
type Response struct {
	Rule     string
	Reply    string
	Analysis analysis.Analysis
}

// DefaultScript returns the built-in script.
func DefaultScript() *Script {
	script, err := ParseScript(defaultScript)
	if err != nil {
		panic(fmt.Sprintf("built-in replay script is invalid: %v", err))
	}
	return script
}

// LoadScript reads a script from path, or returns the built-in one when path is empty.
func LoadScript(path string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultScript(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay script: %w", err)
	}
	script, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return script, nil
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("decode replay script: %w", err)
	}
	if strings.TrimSpace(script.Default.Reply) == "" {
		return nil, ErrEmptyScript
	}
	if script.Default.Name == "" {
		script.Default.Name = "default"
	}
	if err := script.Default.prepare(); err != nil {
		return nil, err
	}
	for i := range script.Rules {
		if err := script.Rules[i].prepare(); err != nil {
			return nil, err
		}
	}
	return &script, nil
}

func (r *Rule) prepare() error {
	severity, err := analysis.ParseSeverity(r.Severity)
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	r.severity = severity
	if strings.TrimSpace(r.Concern.Label) == "" {
		r.Concern.Label = analysis.NeutralConcern
	}
	if err := r.analysis(nil).Validate(); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if strings.TrimSpace(r.Reply) == "" {
		return fmt.Errorf("rule %q: reply is required", r.Name)
	}
	for i, kw := range r.Keywords {
		r.Keywords[i] = strings.ToLower(kw)
	}
	return nil
}

func (r *Rule) analysis(entities []analysis.Entity) analysis.Analysis {
	if entities == nil {
		entities = []analysis.Entity{}
	}
	return analysis.Analysis{
		Polarity: r.Polarity,
		Severity: r.severity,
		Concern:  analysis.Concern{Label: r.Concern.Label, Confidence: r.Concern.Confidence},
		Entities: entities,
	}
}

// Match picks the best-scoring rule for text. Ties go to the rule listed
// first; no match falls back to the default.
func (s *Script) Match(text string) Response {
	normalized := strings.ToLower(strings.TrimSpace(text))

	best := &s.Default
	bestScore := 0
	for i := range s.Rules {
		score := scoreRule(normalized, &s.Rules[i])
		if score > bestScore {
			best = &s.Rules[i]
			bestScore = score
		}
	}

	return Response{
		Rule:     best.Name,
		Reply:    best.Reply,
		Analysis: best.analysis(s.entitiesIn(normalized, text)),
	}
}

func scoreRule(normalized string, rule *Rule) int {
	if normalized == "" {
		return 0
	}
	score := 0
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			score += keywordWeight
		}
	}
	return score
}

// entitiesIn reports lexicon entries found in the message, in lexicon order,
// using the casing the user typed.
func (s *Script) entitiesIn(normalized, original string) []analysis.Entity {
	var found []analysis.Entity
	for _, e := range s.Entities {
		needle := strings.ToLower(e.Text)
		if needle == "" {
			continue
		}
		at := strings.Index(normalized, needle)
		if at < 0 {
			continue
		}
		text := e.Text
		if trimmed := strings.TrimSpace(original); len(trimmed) == len(normalized) {
			text = trimmed[at : at+len(needle)]
		}
		found = append(found, analysis.Entity{Text: text, Label: analysis.ParseEntityLabel(e.Label)})
	}
	return found
}
