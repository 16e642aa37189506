// Package ats provides the heuristic applicant-tracking-system scorer for extracted resume text.
package ats

import (
	"regexp"
	"strings"
)

// Scoring weights and limits.
const (
	pointsPerSkill   = 5
	maxSkillsScore   = 40
	pointsPerKeyword = 2
	maxKeywordScore  = 30
	idealLengthScore = 30
	otherLengthScore = 15
	pointsPerFlag    = 25
	maxScore         = 100

	minIdealWords = 200
	maxIdealWords = 800

	minSkillsBeforeSuggestion   = 5
	minKeywordsBeforeSuggestion = 10
)

var (
	phonePattern      = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	experiencePattern = regexp.MustCompile(`(?i)experience|employment|work history|professional background`)
	educationPattern  = regexp.MustCompile(`(?i)education|degree|university|college|bachelor|master|phd`)
	skillsPattern     = regexp.MustCompile(`(?i)skills|technical skills|competencies|expertise`)
)

// Metadata describes the structural properties detected in the text.
type Metadata struct {
	WordCount         int  `json:"word_count"`
	HasContactInfo    bool `json:"has_contact_info"`
	HasWorkExperience bool `json:"has_work_experience"`
	HasEducation      bool `json:"has_education"`
	HasSkillsSection  bool `json:"has_skills_section"`
}

// Report is the result of analyzing a resume.
type Report struct {
	Score           int      `json:"score"`
	FormattingScore int      `json:"formatting_score"`
	SkillsFound     []string `json:"skills_found"`
	KeywordsFound   []string `json:"keywords_found"`
	Suggestions     []string `json:"suggestions"`
	Metadata        Metadata `json:"metadata"`
}

// Analyze scores resume text. It is deterministic and keeps no state.
//
// Text without any words scores zero; the length component is only awarded
// once there is something to measure.
func Analyze(text string) Report {
	words := strings.Fields(text)
	lower := strings.ToLower(text)

	meta := Metadata{
		WordCount:         len(words),
		HasContactInfo:    phonePattern.MatchString(text) || emailPattern.MatchString(text),
		HasWorkExperience: experiencePattern.MatchString(text),
		HasEducation:      educationPattern.MatchString(text),
		HasSkillsSection:  skillsPattern.MatchString(text),
	}

	skills := matchTerms(lower, skillTerms)
	keywords := matchTerms(lower, actionKeywords)

	report := Report{
		FormattingScore: formattingScore(meta),
		SkillsFound:     skills,
		KeywordsFound:   keywords,
		Metadata:        meta,
	}

	if meta.WordCount > 0 {
		skillsScore := min(pointsPerSkill*len(skills), maxSkillsScore)
		keywordScore := min(pointsPerKeyword*len(keywords), maxKeywordScore)
		report.Score = min(maxScore, skillsScore+keywordScore+lengthScore(meta.WordCount))
	}

	report.Suggestions = suggestions(len(skills), len(keywords), meta)
	return report
}

// matchTerms returns the terms contained in lowerText, in list order.
func matchTerms(lowerText string, terms []string) []string {
	found := make([]string, 0, len(terms))
	for _, term := range terms {
		if strings.Contains(lowerText, term) {
			found = append(found, term)
		}
	}
	return found
}

func lengthScore(wordCount int) int {
	if wordCount >= minIdealWords && wordCount <= maxIdealWords {
		return idealLengthScore
	}
	return otherLengthScore
}

func formattingScore(meta Metadata) int {
	score := 0
	for _, flag := range []bool{meta.HasContactInfo, meta.HasWorkExperience, meta.HasEducation, meta.HasSkillsSection} {
		if flag {
			score += pointsPerFlag
		}
	}
	return min(score, maxScore)
}

func suggestions(skillCount, keywordCount int, meta Metadata) []string {
	out := []string{}
	if skillCount < minSkillsBeforeSuggestion {
		out = append(out, SuggestionMoreSkills)
	}
	if keywordCount < minKeywordsBeforeSuggestion {
		out = append(out, SuggestionActionVerbs)
	}
	if !meta.HasContactInfo {
		out = append(out, SuggestionContactInfo)
	}
	if !meta.HasSkillsSection {
		out = append(out, SuggestionSkillsSection)
	}
	if meta.WordCount < minIdealWords {
		out = append(out, SuggestionTooShort)
	}
	if meta.WordCount > maxIdealWords {
		out = append(out, SuggestionTooLong)
	}
	return out
}

// SkillTerms returns a copy of the skill vocabulary.
func SkillTerms() []string {
	return append([]string(nil), skillTerms...)
}

// ActionKeywords returns a copy of the action keyword vocabulary.
func ActionKeywords() []string {
	return append([]string(nil), actionKeywords...)
}
