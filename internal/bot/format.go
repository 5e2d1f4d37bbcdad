package bot

import (
	"strings"

	"github.com/user/thread-tracker/internal/summarizer"
)

type Classification string

const (
	ClassificationFeature Classification = "feature"
	ClassificationBug     Classification = "bug"
)

// Issue labels. Every issue carries the provenance label plus exactly
// one classification label; the AI strategy adds the generated marker.
const (
	labelProvenance = "discord"
	labelGenerated  = "auto-generated"
	labelFeature    = "enhancement"
	labelBug        = "bug"
)

// Classify picks the issue classification from the forum channel's name.
func Classify(channelName string) Classification {
	if strings.Contains(strings.ToLower(channelName), "feature") {
		return ClassificationFeature
	}
	return ClassificationBug
}

func issueLabels(class Classification, generated bool) []string {
	labels := []string{labelProvenance}
	if generated {
		labels = append(labels, labelGenerated)
	}
	if class == ClassificationFeature {
		labels = append(labels, labelFeature)
	} else {
		labels = append(labels, labelBug)
	}
	return labels
}

// formatSummaryBody renders a structured summary into the final issue
// body. Feature requests are the description verbatim; bug reports get
// labeled sections in fixed order, each present only when populated.
func formatSummaryBody(s *summarizer.Summary, class Classification) string {
	if class == ClassificationFeature {
		return s.Description
	}

	sections := []struct {
		heading string
		content string
	}{
		{"Description", s.Description},
		{"How to replicate the issue", s.ReplicationSteps},
		{"Extension version", s.ExtensionVersion},
		{"Browser(s) used", s.BrowsersUsed},
	}

	var parts []string
	for _, section := range sections {
		if section.content == "" {
			continue
		}
		parts = append(parts, section.heading+"\n"+section.content)
	}

	return strings.Join(parts, "\n\n")
}

// stripTrackingMarker removes marker lines carried over inside an
// existing issue body before it is fed back to the model. Both marker
// shapes are dropped: the issue reference and the thread back-reference.
func stripTrackingMarker(body string) string {
	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Tracked in ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
