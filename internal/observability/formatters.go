// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-live/internal/ats"
	"github.com/jonathan/resume-live/internal/live"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxStars is the width of the star bar
	maxStars = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		runes := []rune(line)
		if len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintATSReport outputs the scorer result for one resume.
func (p *Printer) PrintATSReport(name string, report *ats.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Resume:      %s\n", name))
	sb.WriteString(fmt.Sprintf("ATS score:   %d/100\n", report.Score))
	sb.WriteString(fmt.Sprintf("Formatting:  %d/100\n", report.FormattingScore))
	sb.WriteString(fmt.Sprintf("Words:       %d\n", report.Metadata.WordCount))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s Contact info    %s Experience\n", check(report.Metadata.HasContactInfo), check(report.Metadata.HasWorkExperience)))
	sb.WriteString(fmt.Sprintf("%s Education       %s Skills section\n", check(report.Metadata.HasEducation), check(report.Metadata.HasSkillsSection)))

	writeList(&sb, "Skills", report.SkillsFound)
	writeList(&sb, "Keywords", report.KeywordsFound)

	if len(report.Suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range report.Suggestions {
			sb.WriteString(fmt.Sprintf("  • %s\n", s))
		}
	}

	p.printBox("ATS REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSnapshot outputs the live aggregate for the current target.
func (p *Printer) PrintSnapshot(snap live.Snapshot) {
	var sb strings.Builder

	if snap.Target == nil {
		sb.WriteString("No resume under review\n")
	} else {
		sb.WriteString(fmt.Sprintf("Reviewing:  %s\n", *snap.Target))
	}

	switch {
	case snap.ResultsHidden:
		sb.WriteString("Results:    hidden\n")
	case snap.Stats != nil:
		writeStats(&sb, *snap.Stats)
	}

	if n := len(snap.Overlays[live.OverlayReactions]); n > 0 {
		glyphs := make([]string, 0, n)
		for _, item := range snap.Overlays[live.OverlayReactions] {
			glyphs = append(glyphs, item.Text)
		}
		sb.WriteString(fmt.Sprintf("Reactions:  %s\n", strings.Join(glyphs, " ")))
	}

	if len(snap.Questions) > 0 {
		sb.WriteString("\nTop questions:\n")
		count := min(len(snap.Questions), maxItemsToShow)
		for _, q := range snap.Questions[:count] {
			sb.WriteString(fmt.Sprintf("  [%d] %s\n", q.Upvotes, q.Body))
		}
	}

	if len(snap.Chat) > 0 {
		sb.WriteString("\nChat:\n")
		count := min(len(snap.Chat), maxItemsToShow)
		for _, m := range snap.Chat[:count] {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", m.Author, m.Body))
		}
	}

	p.printBox("LIVE REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

func writeStats(sb *strings.Builder, stats live.Stats) {
	if stats.Count == 0 {
		sb.WriteString("Ratings:    none yet\n")
		return
	}
	sb.WriteString(fmt.Sprintf("Rating:     %.1f %s (%d ratings)\n", stats.AverageDisplay, stars(stats.Stars), stats.Count))
	c := stats.Categories
	sb.WriteString(fmt.Sprintf("  presentation %.1f  layout %.1f  content %.1f\n", c.Presentation, c.Layout, c.Content))
	if stats.Agree+stats.Disagree > 0 {
		sb.WriteString(fmt.Sprintf("  agree %d  disagree %d\n", stats.Agree, stats.Disagree))
	}
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	count := min(len(items), maxItemsToShow*2)
	sb.WriteString(fmt.Sprintf("\n%s (%d): %s", label, len(items), strings.Join(items[:count], ", ")))
	if len(items) > count {
		sb.WriteString(fmt.Sprintf(" ... and %d more", len(items)-count))
	}
	sb.WriteString("\n")
}

func stars(n int) string {
	n = max(0, min(n, maxStars))
	return strings.Repeat("★", n) + strings.Repeat("☆", maxStars-n)
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
