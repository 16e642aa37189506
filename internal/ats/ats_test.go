package ats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildResume joins the given words and pads with a neutral filler word until
// the text has exactly total words.
func buildResume(total int, words ...string) string {
	out := append([]string{}, words...)
	for len(out) < total {
		out = append(out, "lorem")
	}
	return strings.Join(out, " ")
}

func TestVocabularySizes(t *testing.T) {
	assert.Len(t, SkillTerms(), 45)
	assert.Len(t, ActionKeywords(), 22)
}

func TestAnalyze_Empty(t *testing.T) {
	report := Analyze("")

	assert.Equal(t, 0, report.Metadata.WordCount)
	assert.False(t, report.Metadata.HasContactInfo)
	assert.False(t, report.Metadata.HasWorkExperience)
	assert.False(t, report.Metadata.HasEducation)
	assert.False(t, report.Metadata.HasSkillsSection)
	assert.Equal(t, 0, report.Score)
	assert.Equal(t, 0, report.FormattingScore)
	assert.Empty(t, report.SkillsFound)
	assert.Empty(t, report.KeywordsFound)
	assert.Equal(t, []string{
		SuggestionMoreSkills,
		SuggestionActionVerbs,
		SuggestionContactInfo,
		SuggestionSkillsSection,
		SuggestionTooShort,
	}, report.Suggestions)
}

func TestAnalyze_WhitespaceOnly(t *testing.T) {
	report := Analyze("   \n\t  ")
	assert.Equal(t, 0, report.Metadata.WordCount)
	assert.Equal(t, 0, report.Score)
}

func TestAnalyze_ReferenceScenario(t *testing.T) {
	text := buildResume(500,
		"jane@example.com", "Experience", "Education", "Skills",
		"python", "docker", "kubernetes", "agile", "teamwork",
		"achieved", "improved", "developed", "managed", "created",
		"implemented", "designed", "increased", "reduced", "launched",
	)

	report := Analyze(text)

	require.Equal(t, 500, report.Metadata.WordCount)
	assert.Len(t, report.SkillsFound, 5)
	assert.Len(t, report.KeywordsFound, 10)
	assert.Equal(t, 75, report.Score)
	assert.Equal(t, 100, report.FormattingScore)
	assert.Empty(t, report.Suggestions)
}

func TestAnalyze_CapsAndLongText(t *testing.T) {
	words := append(SkillTerms(), ActionKeywords()...)
	text := buildResume(900, words...)

	report := Analyze(text)

	// 40 (capped skills) + 30 (capped keywords) + 15 (outside ideal length)
	assert.Equal(t, 85, report.Score)
	assert.Contains(t, report.Suggestions, SuggestionTooLong)
	assert.NotContains(t, report.Suggestions, SuggestionTooShort)
	assert.NotContains(t, report.Suggestions, SuggestionMoreSkills)
}

func TestAnalyze_CaseInsensitiveMatching(t *testing.T) {
	report := Analyze("Built a PYTHON service on Docker")
	assert.Equal(t, []string{"python", "docker"}, report.SkillsFound)
	assert.Equal(t, []string{"built"}, report.KeywordsFound)
}

func TestAnalyze_ContactDetection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "us phone", text: "call (555) 123-4567", want: true},
		{name: "international phone", text: "call +44 555 123 4567", want: true},
		{name: "email", text: "reach me at dev.person@mail.io", want: true},
		{name: "none", text: "no way to reach me", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.text).Metadata.HasContactInfo)
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	text := buildResume(300, "Experience", "python", "led", "a@b.co")
	first := Analyze(text)
	second := Analyze(text)
	assert.Equal(t, first, second)
}

func TestAnalyze_ShortTextLengthScore(t *testing.T) {
	report := Analyze("python")
	// 5 for one skill, 0 keywords, 15 for length outside the ideal range
	assert.Equal(t, 20, report.Score)
	assert.Contains(t, report.Suggestions, SuggestionTooShort)
}
