package markup

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// voidElements never carry content and are never pruned.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// keptWhenEmpty are non-void elements whose empty form is meaningful.
var keptWhenEmpty = map[string]bool{
	"colgroup": true, "th": true, "td": true,
}

type pruneFrame struct {
	name    string
	start   string
	keep    bool
	content bool
	parts   []string
}

// removeEmpty drops elements whose content is empty or whitespace, innermost
// first, so <b><i> </i></b> disappears entirely. Elements carrying id or name,
// void elements and names in keep survive. Kept tokens are copied verbatim,
// so input without empty elements comes back unchanged.
func removeEmpty(s string, keep map[string]bool) string {
	if !strings.Contains(s, "<") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	root := &pruneFrame{}
	stack := []*pruneFrame{root}
	pruned := false

	top := func() *pruneFrame { return stack[len(stack)-1] }
	emit := func(raw string, content bool) {
		f := top()
		f.parts = append(f.parts, raw)
		if content {
			f.content = true
		}
	}
	// close pops the top frame into its parent.
	closeTop := func(end string) {
		f := top()
		stack = stack[:len(stack)-1]
		if !f.content && !f.keep && end != "" {
			pruned = true
			return
		}
		emit(f.start+strings.Join(f.parts, "")+end, true)
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())

		switch tt {
		case html.TextToken:
			emit(raw, strings.TrimSpace(html.UnescapeString(raw)) != "")
		case html.SelfClosingTagToken:
			emit(raw, true)
		case html.StartTagToken:
			tok := z.Token()
			if voidElements[tok.Data] {
				emit(raw, true)
				continue
			}
			stack = append(stack, &pruneFrame{
				name:  tok.Data,
				start: raw,
				keep:  keep[tok.Data] || keptWhenEmpty[tok.Data] || hasAnchorAttr(tok),
			})
		case html.EndTagToken:
			name := z.Token().Data
			match := -1
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].name == name {
					match = i
					break
				}
			}
			if match < 0 {
				emit(raw, true)
				continue
			}
			// unclosed inner elements are kept as written
			for len(stack)-1 > match {
				top().content = true
				closeTop("")
			}
			closeTop(raw)
		default:
			emit(raw, true)
		}
	}

	if err := z.Err(); !errors.Is(err, io.EOF) {
		return s
	}
	for len(stack) > 1 {
		top().content = true
		closeTop("")
	}
	if !pruned {
		return s
	}
	return strings.Join(root.parts, "")
}

func hasAnchorAttr(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "id" || a.Key == "name" {
			return true
		}
	}
	return false
}
