package llm_test

import (
	"testing"

	"github.com/signalnine/arena/internal/llm"
)

func TestExtractJSONCleanObject(t *testing.T) {
	var out map[string]float64
	err := llm.ExtractJSON(`{"move": 0.9, "attack": 0.1}`, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["move"] != 0.9 {
		t.Errorf("move: got %f, want 0.9", out["move"])
	}
}

func TestExtractJSONMarkdownFences(t *testing.T) {
	input := "```json\n{\"goal\": \"build-army\"}\n```"
	var out map[string]string
	if err := llm.ExtractJSON(input, &out); err != nil {
		t.Fatal(err)
	}
	if out["goal"] != "build-army" {
		t.Errorf("goal: got %q, want build-army", out["goal"])
	}
}

func TestExtractJSONWithPreambleAndTrailer(t *testing.T) {
	input := "Sure, here is the analysis:\n\n{\"aggression\": 0.7}\n\nLet me know if you want changes."
	var out map[string]float64
	if err := llm.ExtractJSON(input, &out); err != nil {
		t.Fatal(err)
	}
	if out["aggression"] != 0.7 {
		t.Errorf("aggression: got %f, want 0.7", out["aggression"])
	}
}

func TestExtractJSONNestedBraces(t *testing.T) {
	input := `{"priors": {"move": 0.5, "attack": 0.5}, "goal": "defend"}`
	var out struct {
		Priors map[string]float64 `json:"priors"`
		Goal   string             `json:"goal"`
	}
	if err := llm.ExtractJSON(input, &out); err != nil {
		t.Fatal(err)
	}
	if out.Goal != "defend" || out.Priors["move"] != 0.5 {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	var out map[string]float64
	if err := llm.ExtractJSON("I cannot evaluate this position.", &out); err == nil {
		t.Error("expected error for response with no JSON object")
	}
}

func TestExtractJSONBraceInsideString(t *testing.T) {
	input := `{"reasoning": "enemy base looks like a { fortress }", "goal": "attack-base"}`
	var out struct {
		Reasoning string `json:"reasoning"`
		Goal      string `json:"goal"`
	}
	if err := llm.ExtractJSON(input, &out); err != nil {
		t.Fatal(err)
	}
	if out.Goal != "attack-base" {
		t.Errorf("goal: got %q, want attack-base", out.Goal)
	}
}
