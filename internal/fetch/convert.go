package fetch

import (
	"io"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// subtrees removed entirely before text extraction. These carry chrome and
// machinery, never review prose.
var containerTags = []string{
	"script", "style", "noscript", "nav", "footer", "header",
	"aside", "iframe", "form", "button", "svg",
}

// blockTags become line breaks so paragraph boundaries survive stripping.
var blockTags = []string{
	"p", "div", "br", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6",
	"tr", "table", "section", "article", "blockquote",
}

var (
	containerRes []*regexp.Regexp
	blockRe      *regexp.Regexp
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	spaceRe      = regexp.MustCompile(`[ \t]+`)
	nlRe         = regexp.MustCompile(`\n{3,}`)
	titleRe      = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)
)

func init() {
	for _, tag := range containerTags {
		containerRes = append(containerRes, regexp.MustCompile(`(?is)<`+tag+`[^>]*>.*?</`+tag+`>`))
	}
	blockRe = regexp.MustCompile(`(?i)</?(?:` + strings.Join(blockTags, "|") + `)\b[^>]*>`)
}

// htmlToText strips container subtrees, turns block-level tags into line
// breaks, removes remaining tags, decodes entities, and collapses whitespace.
func htmlToText(html string) string {
	for _, re := range containerRes {
		html = re.ReplaceAllString(html, "")
	}

	html = blockRe.ReplaceAllString(html, "\n")
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
		"&mdash;", "-",
		"&ndash;", "-",
	)
	html = r.Replace(html)

	html = spaceRe.ReplaceAllString(html, " ")

	// Trim per-line space so block breaks produce clean lines.
	lines := strings.Split(html, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	html = strings.Join(lines, "\n")

	html = nlRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

// extractTitle pulls the <title> from HTML.
func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// decodeBody decodes raw bytes per the charset declared in contentType,
// defaulting to UTF-8. Unknown charsets and decode errors fall back to the
// raw bytes with invalid sequences passed through.
func decodeBody(raw []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(raw)
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(raw)
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(transform.NewReader(strings.NewReader(string(raw)), enc.NewDecoder()))
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
