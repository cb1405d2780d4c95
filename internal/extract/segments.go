package extract

import (
	"regexp"
	"strings"

	"github.com/sandevgo/distill/internal/core"
)

var segmentPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)

// ParseSegments splits raw transcript text into timestamped segments.
// Lines shaped like "[timestamp] text" keep their timestamp; any other
// non-blank line becomes a segment with an empty one.
func ParseSegments(raw string) []core.Segment {
	var segments []core.Segment

	for _, line := range strings.Split(raw, "\n") {
		if match := segmentPattern.FindStringSubmatch(line); match != nil {
			segments = append(segments, core.Segment{
				Timestamp: match[1],
				Text:      match[2],
			})
			continue
		}
		if text := strings.TrimSpace(line); text != "" {
			segments = append(segments, core.Segment{Text: text})
		}
	}

	return segments
}

// NewTranscript pairs raw text with its parsed segments.
func NewTranscript(raw string) core.Transcript {
	return core.Transcript{
		Raw:      raw,
		Segments: ParseSegments(raw),
	}
}
