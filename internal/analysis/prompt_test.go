package analysis

import (
	"strings"
	"testing"

	"github.com/sagarsarangi/startup-check/models"
)

func TestBuildPromptIncludesInput(t *testing.T) {
	input := models.StartupInput{
		Name:        "Acme Analytics",
		Category:    "B2B SaaS",
		Description: "Self-serve churn prediction for subscription businesses.",
	}
	prompt := BuildPrompt(input)

	for _, want := range []string{input.Name, input.Category, input.Description} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptStatesSchema(t *testing.T) {
	prompt := BuildPrompt(models.StartupInput{Name: "n", Category: "c", Description: "d"})

	for _, marker := range []string{
		"ONLY valid JSON",
		`"overallScore"`,
		`"radarChart"`,
		`"competitorScores"`,
		`"marketInsights"`,
		"minimum 3 and maximum 5 competitors",
	} {
		if !strings.Contains(prompt, marker) {
			t.Fatalf("prompt missing schema marker %q", marker)
		}
	}
	for _, subject := range models.RadarSubjects {
		if !strings.Contains(prompt, subject) {
			t.Fatalf("prompt missing radar subject %q", subject)
		}
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	input := models.StartupInput{Name: "n", Category: "c", Description: "d"}
	if BuildPrompt(input) != BuildPrompt(input) {
		t.Fatalf("prompt must be a pure function of the input")
	}
}
