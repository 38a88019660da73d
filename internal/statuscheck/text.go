// File: internal/statuscheck/text.go
package statuscheck

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractVisibleText walks a serialized document and collects the text a
// reader would see, skipping script/style/head subtrees. Fallback path for
// pages where live text extraction comes back empty.
func ExtractVisibleText(document string) string {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.TrimSpace(sb.String())
}
