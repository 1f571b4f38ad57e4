package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// GetText concatenates every text node under node, depth first.
func GetText(node *html.Node) string {
	if node == nil {
		return ""
	}

	var out strings.Builder
	stack := []*html.Node{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.Type == html.TextNode {
			out.WriteString(current.Data)
			continue
		}
		// push children in reverse so they pop in document order
		var children []*html.Node
		for child := current.FirstChild; child != nil; child = child.NextSibling {
			children = append(children, child)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out.String()
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText collapses an element's visible text into a single trimmed
// line, the way it reads on the rendered page.
func CleanText(node *html.Node) string {
	text := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, GetText(node))

	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}
