package importers

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// htmlEventKind distinguishes the events produced by scanHTML.
type htmlEventKind int

const (
	htmlStart htmlEventKind = iota
	htmlEnd
	htmlElement
)

// htmlEvent is a start tag, an end tag, or a captured element with its text.
type htmlEvent struct {
	Kind  htmlEventKind
	Tag   string
	Attrs map[string]string
	Text  string
}

// Tags that implicitly close a captured element left open by sloppy exporters.
var captureBreakers = map[string]bool{
	"dl": true, "dt": true, "dd": true, "ul": true, "ol": true, "li": true,
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true,
}

// scanHTML tokenizes content and reports every tag in capture as a single
// htmlElement event carrying its collapsed text. Other tags are reported as
// htmlStart/htmlEnd. The tokenizer never builds a tree, so deeply nested input
// costs no extra memory.
func scanHTML(content []byte, capture map[string]bool, fn func(htmlEvent) error) error {
	z := html.NewTokenizer(bytes.NewReader(content))

	var open *htmlEvent
	var text strings.Builder
	flush := func() error {
		if open == nil {
			return nil
		}
		ev := *open
		ev.Text = collapseSpace(text.String())
		open = nil
		text.Reset()
		return fn(ev)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return flush()

		case html.TextToken:
			if open != nil {
				text.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := tok.Data
			if capture[tag] || (open != nil && captureBreakers[tag]) {
				if err := flush(); err != nil {
					return err
				}
			}
			if capture[tag] {
				open = &htmlEvent{Kind: htmlElement, Tag: tag, Attrs: tokenAttrs(tok)}
				if tt == html.SelfClosingTagToken {
					if err := flush(); err != nil {
						return err
					}
				}
				continue
			}
			if open != nil {
				continue
			}
			if err := fn(htmlEvent{Kind: htmlStart, Tag: tag, Attrs: tokenAttrs(tok)}); err != nil {
				return err
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if open != nil {
				closes := tag == open.Tag
				if closes || captureBreakers[tag] {
					if err := flush(); err != nil {
						return err
					}
				}
				if closes || open != nil {
					continue
				}
			}
			if err := fn(htmlEvent{Kind: htmlEnd, Tag: tag}); err != nil {
				return err
			}
		}
	}
}

func tokenAttrs(tok html.Token) map[string]string {
	attrs := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"en-note": true, "figcaption": true, "figure": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "summary": true,
	"table": true, "tr": true, "ul": true,
}

// textRenderer flattens an HTML (or ENML) tree into plain text, one block per line.
type textRenderer struct {
	sb   strings.Builder
	skip func(*html.Node) bool
	pre  int
}

// newline ends the current line unless it is already empty.
func (r *textRenderer) newline() {
	str := strings.TrimRight(r.sb.String(), " \t")
	if str == "" || strings.HasSuffix(str, "\n") {
		return
	}
	r.sb.WriteByte('\n')
}

func (r *textRenderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if r.pre > 0 {
			r.sb.WriteString(n.Data)
			return
		}
		r.sb.WriteString(whitespaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		if r.skip != nil && r.skip(n) {
			return
		}
		switch n.Data {
		case "script", "style", "head", "title", "noscript", "template":
			return
		case "br":
			r.sb.WriteByte('\n')
			return
		case "en-crypt":
			r.sb.WriteString("[encrypted content]")
			return
		case "en-media":
			r.sb.WriteString("[attachment]")
		case "en-todo":
			if strings.EqualFold(nodeAttr(n, "checked"), "true") {
				r.sb.WriteString("[x] ")
			} else {
				r.sb.WriteString("[ ] ")
			}
		case "td", "th":
			r.sb.WriteByte(' ')
		}
		block := blockElements[n.Data]
		if block {
			r.newline()
		}
		if n.Data == "li" {
			r.sb.WriteString("- ")
		}
		if n.Data == "pre" {
			r.pre++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
		if n.Data == "pre" {
			r.pre--
		}
		if block {
			r.newline()
		}
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
	}
}

// renderText returns the readable text below n with tidy line breaks.
// Nodes matching skip are left out together with their children.
func renderText(n *html.Node, skip func(*html.Node) bool) string {
	r := &textRenderer{skip: skip}
	r.walk(n)
	return tidyLines(r.sb.String())
}

// tidyLines trims every line and keeps at most one blank line in a row.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimRight(strings.TrimLeft(line, " \t"), " \t\r")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// htmlToText parses an HTML or ENML fragment and returns its text.
func htmlToText(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	return renderText(doc, nil), nil
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(nodeAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findElement returns the first element in document order that matches.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// nodeText returns the collapsed text content of n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(sb.String())
}
