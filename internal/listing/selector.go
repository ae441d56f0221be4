package listing

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is one compound part of a CSS selector, e.g. "a.file[href]".
type selector struct {
	tag     string
	class   string
	attrKey string
	attrVal string
	hasVal  bool
}

// parseSelector splits a selector on whitespace into descendant parts.
// Supported parts are tag, .class, tag.class, tag[attr] and tag[attr=value].
func parseSelector(s string) []selector {
	var parts []selector
	for _, field := range strings.Fields(s) {
		parts = append(parts, parseSimple(field))
	}
	return parts
}

func parseSimple(sel string) selector {
	var s selector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attr := strings.TrimSuffix(sel[idx+1:], "]")
		sel = sel[:idx]
		if eq := strings.IndexByte(attr, '='); eq >= 0 {
			s.attrKey = attr[:eq]
			s.attrVal = strings.Trim(attr[eq+1:], `"'`)
			s.hasVal = true
		} else {
			s.attrKey = attr
		}
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = strings.ToLower(sel)
	return s
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && s.tag != "*" && n.Data != s.tag {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		val, ok := lookupAttr(n, s.attrKey)
		if !ok || (s.hasVal && val != s.attrVal) {
			return false
		}
	}
	return true
}

// selectAll returns the nodes under root matching every part of the
// selector, in document order and without duplicates.
func selectAll(root *html.Node, parts []selector) []*html.Node {
	if len(parts) == 0 {
		return nil
	}

	matches := descendants(root, parts[0], false)
	for _, part := range parts[1:] {
		seen := make(map[*html.Node]bool)
		var next []*html.Node
		for _, parent := range matches {
			for _, n := range descendants(parent, part, true) {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		matches = next
	}
	return matches
}

func descendants(root *html.Node, s selector, skipRoot bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if (n != root || !skipRoot) && s.matches(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) string {
	val, _ := lookupAttr(n, key)
	return val
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
