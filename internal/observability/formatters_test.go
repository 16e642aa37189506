package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-live/internal/ats"
	"github.com/jonathan/resume-live/internal/live"
	"github.com/jonathan/resume-live/internal/types"
)

func TestPrintATSReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := ats.Analyze("jane@example.com\nExperience: led a Python and Docker rollout\nEducation: BSc")
	p.PrintATSReport("jane.pdf", &report)
	output := buf.String()

	assert.Contains(t, output, "ATS REPORT")
	assert.Contains(t, output, "jane.pdf")
	assert.Contains(t, output, "python")
	assert.Contains(t, output, "✓ Contact info")
	assert.Contains(t, output, "✗ Skills section")
	assert.Contains(t, output, "Suggestions:")
}

func TestPrintATSReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintATSReport("x", nil)
	assert.Empty(t, buf.String())
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	target := "Alice"
	p.PrintSnapshot(live.Snapshot{
		Target: &target,
		Stats: &live.Stats{
			Count: 4, AverageDisplay: 3.3, Stars: 3,
			Categories: live.CategoryAverages{Presentation: 4, Layout: 3.5, Content: 2},
			Agree:      2,
		},
		Overlays: map[live.OverlayKind][]live.OverlayItem{
			live.OverlayReactions: {{Text: "🔥"}, {Text: "👏"}},
		},
		Questions: []types.Question{{Body: "Why Go?", Upvotes: 3}},
		Chat:      []types.ChatMessage{{Author: "Sam", Body: "nice"}},
	})
	output := buf.String()

	assert.Contains(t, output, "Reviewing:  Alice")
	assert.Contains(t, output, "3.3 ★★★☆☆ (4 ratings)")
	assert.Contains(t, output, "agree 2  disagree 0")
	assert.Contains(t, output, "🔥 👏")
	assert.Contains(t, output, "[3] Why Go?")
	assert.Contains(t, output, "Sam: nice")
}

func TestPrintSnapshot_HiddenAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSnapshot(live.Snapshot{ResultsHidden: true})
	assert.Contains(t, buf.String(), "No resume under review")
	assert.Contains(t, buf.String(), "hidden")

	buf.Reset()
	target := "Bob"
	p.PrintSnapshot(live.Snapshot{Target: &target, Stats: &live.Stats{}})
	assert.Contains(t, buf.String(), "none yet")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("T", strings.Repeat("é", 100))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestStars(t *testing.T) {
	assert.Equal(t, "☆☆☆☆☆", stars(0))
	assert.Equal(t, "★★★★★", stars(9))
	assert.Equal(t, "★★☆☆☆", stars(2))
}
