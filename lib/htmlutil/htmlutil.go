package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("arena-sheets/lib/htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteString(" ")
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// TrimText removes non-printable characters, turns non-breaking spaces into
// spaces and trims. Inner whitespace is left untouched.
func TrimText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' {
			return ' '
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// CleanText is TrimText that also collapses inner whitespace.
func CleanText(s string) string {
	return innerWhitespace.ReplaceAllString(TrimText(s), " ")
}
