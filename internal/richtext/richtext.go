// Package richtext converts the small markdown subset used in audit text
// fields into HTML.
//
// Grammar:
//
//	text      = line { "\n" line }
//	line      -> <p>inline</p>   (blank lines are dropped)
//	**x**     -> <strong>x</strong>
//	*x*       -> <em>x</em>
//	`x`       -> <code>x</code>
//
// Everything else is literal text and is HTML-escaped, including
// underscores, backslashes and entity references. A backslash before `*` or
// a backtick keeps that character literal and is itself kept.
package richtext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(starEmphasis{parser.NewEmphasisParser()}, 500),
		),
	)),
	goldmark.WithRendererOptions(html.WithWriter(literalWriter{html.DefaultWriter})),
)

// starEmphasis is the emphasis parser triggered by '*' only.
type starEmphasis struct{ parser.InlineParser }

func (starEmphasis) Trigger() []byte { return []byte{'*'} }

// literalWriter writes text without resolving backslash escapes or entities.
type literalWriter struct{ html.Writer }

func (w literalWriter) Write(out util.BufWriter, source []byte) { w.RawWrite(out, source) }

// ToHTML converts text to HTML paragraphs. Empty input yields "".
func ToHTML(text string) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for _, line := range lines {
		if err := md.Convert([]byte(line), &buf); err != nil {
			return "<p>" + escape(strings.Join(lines, " ")) + "</p>"
		}
	}
	return strings.TrimSpace(buf.String())
}
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
