// Package markdown renders story bodies, a small Markdown dialect suited to
// prose, into HTML.
package markdown

import (
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnder   = regexp.MustCompile(`__(.+?)__`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnder = regexp.MustCompile(`(^|[^\w])_([^_]+)_([^\w]|$)`)
	reCode        = regexp.MustCompile("`([^`]+)`")
	reLink        = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	reOrdered     = regexp.MustCompile(`^\d+\.\s+`)
	reSceneBreak  = regexp.MustCompile(`^(\*\s*\*\s*\*[\s*]*|-{3,}|#\s*#\s*#|~{3,})$`)
)

// Component returns a templ.Component that writes body as HTML.
func Component(body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, ToHTML(body))
		return err
	})
}

// ToHTML converts a story body to HTML. Blank lines separate paragraphs;
// single line breaks inside a paragraph are kept as <br/>.
func ToHTML(body string) string {
	var b strings.Builder
	r := renderer{b: &b}
	for _, raw := range strings.Split(body, "\n") {
		r.line(strings.TrimRight(raw, "\r \t"))
	}
	r.closeBlock()
	return b.String()
}

type blockKind int

const (
	blockNone blockKind = iota
	blockPara
	blockQuote
	blockList
	blockOrdered
)

type renderer struct {
	b     *strings.Builder
	block blockKind
}

var closeTags = map[blockKind]string{
	blockPara:    "</p>",
	blockQuote:   "</p></blockquote>",
	blockList:    "</ul>",
	blockOrdered: "</ol>",
}

func (r *renderer) closeBlock() {
	r.b.WriteString(closeTags[r.block])
	r.block = blockNone
}

// open starts kind, closing whatever block is open. It reports whether a new
// block was started.
func (r *renderer) open(kind blockKind, tag string) bool {
	if r.block == kind {
		return false
	}
	r.closeBlock()
	r.b.WriteString(tag)
	r.block = kind
	return true
}

func (r *renderer) line(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		r.closeBlock()
	case reSceneBreak.MatchString(trimmed):
		r.closeBlock()
		r.b.WriteString(`<hr class="scene-break"/>`)
	case strings.HasPrefix(trimmed, "### "):
		r.heading(3, trimmed[4:])
	case strings.HasPrefix(trimmed, "## "):
		r.heading(2, trimmed[3:])
	case strings.HasPrefix(trimmed, "# "):
		r.heading(1, trimmed[2:])
	case trimmed == ">" || strings.HasPrefix(trimmed, "> "):
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
		if !r.open(blockQuote, "<blockquote><p>") {
			r.b.WriteString("<br/>")
		}
		r.b.WriteString(Inline(text))
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
		r.open(blockList, "<ul>")
		r.b.WriteString("<li>" + Inline(strings.TrimSpace(trimmed[2:])) + "</li>")
	case reOrdered.MatchString(trimmed):
		r.open(blockOrdered, "<ol>")
		r.b.WriteString("<li>" + Inline(reOrdered.ReplaceAllString(trimmed, "")) + "</li>")
	default:
		if !r.open(blockPara, "<p>") {
			r.b.WriteString("<br/>")
		}
		r.b.WriteString(Inline(trimmed))
	}
}

func (r *renderer) heading(level int, text string) {
	r.closeBlock()
	n := strconv.Itoa(level)
	r.b.WriteString("<h" + n + ">" + Inline(strings.TrimSpace(text)) + "</h" + n + ">")
}

// Inline escapes s and applies emphasis, inline code and links.
func Inline(s string) string {
	escaped := html.EscapeString(s)

	// Inline code is swapped for placeholders so emphasis never applies
	// inside it.
	var code []string
	escaped = reCode.ReplaceAllStringFunc(escaped, func(m string) string {
		code = append(code, "<code>"+reCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00" + strconv.Itoa(len(code)-1) + "\x00"
	})

	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `">` + match[1] + `</a>`
	})

	escaped = outsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnder.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnder.ReplaceAllString(seg, "$1<em>$2</em>$3")
		return seg
	})

	for i, c := range code {
		escaped = strings.Replace(escaped, "\x00"+strconv.Itoa(i)+"\x00", c, 1)
	}
	return escaped
}

// outsideTags applies fn to the text between HTML tags only, so emphasis
// patterns never rewrite attribute values such as link targets.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an attribute when it is relative, a
// fragment, or uses http(s)/mailto; otherwise "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	}
	return ""
}
