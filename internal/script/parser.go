package script

import (
	"regexp"
	"strings"
)

// Canonical section markers. The parser normalizes whatever heading style
// the model produced into these.
const (
	MarkerHook           = "[HOOK]"
	MarkerRetentionReset = "[RETENTION_RESET]"
	MarkerConclusion     = "[CONCLUSION]"
)

var (
	canonicalProductRe = regexp.MustCompile(`^\[PRODUCT_([1-5])\]\s*(.*)$`)

	// informal product headings: "#5 – Name", "# 4: Name", "Number 3 - Name",
	// "No. 2. Name", "**#1 Name**".
	informalProductRe = regexp.MustCompile(`(?i)^\s*\**\s*(?:#\s*|number\s+|no\.?\s*)([1-5])\s*[:.–—-]*\s*(.*?)\**\s*$`)

	retentionRe  = regexp.MustCompile(`(?i)^\s*\**\s*#*\s*(?:quick\s+reset|retention\s+reset|stay\s+with\s+(?:me|us))\s*\**:?\s*$`)
	conclusionRe = regexp.MustCompile(`(?i)^\s*\**\s*#*\s*(?:conclusion|wrap[\s-]?up|final\s+thoughts)\s*\**:?\s*$`)

	metaHeadingRe = regexp.MustCompile(`(?i)^\s*\**\s*#*\s*(avatar\s+intro|youtube\s+description|thumbnail\s+headlines?)\s*\**:?\s*$`)

	hruleRe = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// NormalizeMarkers rewrites informal headings to canonical markers and
// inserts [HOOK] before the first product when opening prose exists.
// It is idempotent: canonical input passes through unchanged.
func NormalizeMarkers(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case canonicalProductRe.MatchString(t),
			strings.HasPrefix(t, MarkerHook),
			strings.HasPrefix(t, MarkerRetentionReset),
			strings.HasPrefix(t, MarkerConclusion):
			out = append(out, t)

		case retentionRe.MatchString(line):
			out = append(out, MarkerRetentionReset)

		case conclusionRe.MatchString(line):
			out = append(out, MarkerConclusion)

		case informalProductRe.MatchString(line):
			m := informalProductRe.FindStringSubmatch(line)
			marker := "[PRODUCT_" + m[1] + "]"
			if name := strings.TrimSpace(m[2]); name != "" {
				marker += " " + name
			}
			out = append(out, marker)

		default:
			out = append(out, line)
		}
	}

	return insertHook(strings.Join(out, "\n"))
}

// insertHook places [HOOK] before the first product marker when non-empty
// prose precedes it and no hook exists yet.
func insertHook(text string) string {
	if strings.Contains(text, MarkerHook) {
		return text
	}
	lines := strings.Split(text, "\n")
	firstProduct := -1
	for i, line := range lines {
		if canonicalProductRe.MatchString(strings.TrimSpace(line)) {
			firstProduct = i
			break
		}
	}
	if firstProduct <= 0 {
		return text
	}

	hasProse := false
	for _, line := range lines[:firstProduct] {
		if strings.TrimSpace(line) != "" {
			hasProse = true
			break
		}
	}
	if !hasProse {
		return text
	}

	out := append([]string{MarkerHook}, lines[:firstProduct]...)
	out = append(out, lines[firstProduct:]...)
	return strings.Join(out, "\n")
}

// ExtractBody returns the script between the first marker and the end of
// the conclusion section, with trailing metadata sections and rules cut.
func ExtractBody(normalized string) string {
	lines := strings.Split(normalized, "\n")

	start := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == MarkerHook || canonicalProductRe.MatchString(t) {
			start = i
			break
		}
	}
	if start == -1 {
		return strings.TrimSpace(normalized)
	}

	end := len(lines)
	inConclusion := false
	for i := start; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == MarkerConclusion {
			inConclusion = true
			continue
		}
		if inConclusion && (metaHeadingRe.MatchString(t) || hruleRe.MatchString(t)) {
			end = i
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// Metadata is the companion material found below the script body.
type Metadata struct {
	AvatarIntro        string   `json:"avatar_intro,omitempty"`
	YouTubeDescription string   `json:"youtube_description,omitempty"`
	ThumbnailHeadlines []string `json:"thumbnail_headlines,omitempty"`
}

// ExtractMetadata scans for avatar-intro, description, and thumbnail
// sections anywhere below the conclusion.
func ExtractMetadata(normalized string) Metadata {
	lines := strings.Split(normalized, "\n")

	var meta Metadata
	section := ""
	var buf []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		switch section {
		case "avatar intro":
			meta.AvatarIntro = body
		case "youtube description":
			meta.YouTubeDescription = body
		case "thumbnail headlines", "thumbnail headline":
			for _, ln := range strings.Split(body, "\n") {
				ln = strings.TrimSpace(strings.TrimLeft(ln, "-*• \t"))
				if ln != "" {
					meta.ThumbnailHeadlines = append(meta.ThumbnailHeadlines, ln)
				}
			}
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if m := metaHeadingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			section = strings.ToLower(regexp.MustCompile(`\s+`).ReplaceAllString(m[1], " "))
			continue
		}
		if section != "" {
			if hruleRe.MatchString(line) {
				flush()
				section = ""
				continue
			}
			buf = append(buf, line)
		}
	}
	flush()
	return meta
}
