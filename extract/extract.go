// Package extract turns raw HTML into a compact text profile: title,
// meta description, headings and the main content block, with scripts,
// media and hidden elements stripped.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the text profile of one HTML document.
type Result struct {
	Title       string
	Description string
	// Text is title, description, h1s, h2s and the main block joined by
	// blank lines, each part whitespace-collapsed. Empty parts are omitted.
	Text string
}

// MainSelectors are probed in order; every match of the first selector
// that matches anything supplies the main content block.
var MainSelectors = []string{"main", "article", ".content", "#content", ".main", "#main"}

var hiddenStyle = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// Extract parses raw and builds its text profile. Malformed markup is
// tolerated; the result may be empty but Extract never fails.
func Extract(raw string) Result {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Result{}
	}

	var res Result
	if t := findFirst(doc, atom.Title); t != nil {
		res.Title = CleanText(collectText(t))
	}
	res.Description = metaDescription(doc)

	stripNonContent(doc)

	h1 := joinHeadings(findAllByTag(doc, atom.H1))
	h2 := joinHeadings(findAllByTag(doc, atom.H2))
	res.Text = joinParts(res.Title, res.Description, h1, h2, mainText(doc))
	return res
}

func metaDescription(doc *html.Node) string {
	for _, m := range findAllByTag(doc, atom.Meta) {
		if strings.EqualFold(getAttr(m, "name"), "description") {
			return CleanText(getAttr(m, "content"))
		}
	}
	return ""
}

func joinHeadings(nodes []*html.Node) string {
	var out []string
	for _, n := range nodes {
		if t := CleanText(collectText(n)); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

// mainText returns the text of every match of the first selector in
// MainSelectors that matches anything, joined by spaces, falling back to
// the whole body. A match nested inside an earlier match is not repeated.
func mainText(doc *html.Node) string {
	for _, sel := range MainSelectors {
		matches := querySelectorAll(doc, sel)
		if len(matches) == 0 {
			continue
		}
		var parts []string
		for i, m := range matches {
			if insideAny(m, matches[:i]) {
				continue
			}
			if t := collectText(m); t != "" {
				parts = append(parts, t)
			}
		}
		if t := CleanText(strings.Join(parts, " ")); t != "" {
			return t
		}
		break
	}
	if body := findFirst(doc, atom.Body); body != nil {
		return CleanText(collectText(body))
	}
	return ""
}

func insideAny(n *html.Node, ancestors []*html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, a := range ancestors {
			if p == a {
				return true
			}
		}
	}
	return false
}

// stripNonContent detaches every element that never carries readable
// content, and everything inside <head>.
func stripNonContent(doc *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isNonContent(n) {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if head := findFirst(doc, atom.Head); head != nil {
		for c := head.FirstChild; c != nil; c = c.NextSibling {
			doomed = append(doomed, c)
		}
	}
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func isNonContent(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Img, atom.Svg,
		atom.Picture, atom.Video, atom.Audio, atom.Canvas, atom.Meta, atom.Link,
		atom.Template:
		return true
	}
	if getAttr(n, "aria-hidden") == "true" || hasAttr(n, "hidden") {
		return true
	}
	if hasClass(n, "hidden") || hasClass(n, "visually-hidden") {
		return true
	}
	if style := getAttr(n, "style"); style != "" {
		for _, re := range hiddenStyle {
			if re.MatchString(style) {
				return true
			}
		}
	}
	return false
}

// collectText concatenates the text nodes under n, separated by spaces.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
