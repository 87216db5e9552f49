package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
)

func TestDefaultScriptMatchesAnxiety(t *testing.T) {
	resp := DefaultScript().Match("I'm feeling really anxious about work")
	if resp.Rule != "anxiety" {
		t.Fatalf("expected anxiety rule, got %s", resp.Rule)
	}
	if resp.Analysis.Severity != analysis.SeverityElevated {
		t.Fatalf("expected ELEVATED, got %s", resp.Analysis.Severity)
	}
	if resp.Analysis.Concern.Label != "anxiety" {
		t.Fatalf("unexpected concern: %+v", resp.Analysis.Concern)
	}
	if len(resp.Analysis.Entities) != 1 || resp.Analysis.Entities[0].Label != analysis.LabelWork {
		t.Fatalf("expected a Work entity, got %+v", resp.Analysis.Entities)
	}
}

func TestDefaultScriptImminentOutranksOthers(t *testing.T) {
	resp := DefaultScript().Match("I want to die, there is no reason to live and I am sad")
	if resp.Analysis.Severity != analysis.SeverityImminent {
		t.Fatalf("expected IMMINENT, got %s (rule %s)", resp.Analysis.Severity, resp.Rule)
	}
}

func TestDefaultScriptFallsBack(t *testing.T) {
	resp := DefaultScript().Match("the weather report")
	if resp.Rule != "default" {
		t.Fatalf("expected default rule, got %s", resp.Rule)
	}
	if resp.Analysis.Severity != analysis.SeveritySafe || resp.Analysis.Concern.Label != analysis.NeutralConcern {
		t.Fatalf("unexpected default analysis: %+v", resp.Analysis)
	}
	if resp.Analysis.Entities == nil {
		t.Fatal("entities should be an empty list, not absent")
	}
}

func TestMatchKeepsUserCasingForEntities(t *testing.T) {
	resp := DefaultScript().Match("My Mom and my Boss")
	if len(resp.Analysis.Entities) != 2 {
		t.Fatalf("expected two entities, got %+v", resp.Analysis.Entities)
	}
	if resp.Analysis.Entities[0].Text != "Boss" || resp.Analysis.Entities[1].Text != "Mom" {
		t.Fatalf("unexpected entity texts: %+v", resp.Analysis.Entities)
	}
}

func TestTiesGoToFirstRule(t *testing.T) {
	script, err := ParseScript([]byte(`
default: {reply: "ok", severity: SAFE}
rules:
  - {name: first, keywords: [blue], reply: "one", severity: ELEVATED, polarity: -0.1}
  - {name: second, keywords: [blue], reply: "two", severity: DISTRESSED, polarity: -0.2}
`))
	if err != nil {
		t.Fatalf("ParseScript err: %v", err)
	}
	if got := script.Match("BLUE").Rule; got != "first" {
		t.Fatalf("expected first rule, got %s", got)
	}
}

func TestParseScriptRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no default":       `rules: []`,
		"unknown severity": `default: {reply: "ok", severity: PANIC}`,
		"bad polarity":     `default: {reply: "ok", severity: SAFE, polarity: 2}`,
		"rule without reply": `
default: {reply: "ok", severity: SAFE}
rules: [{name: x, keywords: [a], severity: SAFE}]`,
	}
	for name, doc := range cases {
		if _, err := ParseScript([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadScriptFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	doc := "default: {reply: \"custom\", severity: elevated, polarity: -0.2}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript err: %v", err)
	}
	if resp := script.Match("anything"); resp.Reply != "custom" || resp.Analysis.Severity != analysis.SeverityElevated {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing script")
	}
}
