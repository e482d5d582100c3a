package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// renderInline renders the children of n as a sequence of fragments keyed
// by original sibling order: raw text nodes interleave with rendered
// elements exactly as they appeared in the source document.
func (c *Converter) renderInline(n *html.Node, depth int) (string, error) {
	var frags []string
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		frag, err := c.renderInlineNode(child, depth)
		if err != nil {
			return "", err
		}
		frags = append(frags, frag)
	}
	return strings.Join(frags, ""), nil
}

func (c *Converter) renderInlineNode(n *html.Node, depth int) (string, error) {
	switch n.Type {
	case html.TextNode:
		return n.Data, nil
	case html.ElementNode:
	default:
		return "", nil
	}

	switch n.Data {
	case "br":
		return "\n", nil
	case "span":
		if hasClass(n, "footnote-anchor") {
			return "[^" + strings.TrimSpace(textContent(n)) + "]", nil
		}
		return c.renderInline(n, depth)
	case "b", "strong", "h1", "h2", "h3", "h4", "h5", "h6":
		inner, err := c.renderInline(n, depth)
		if err != nil {
			return "", err
		}
		return emphasize(inner, "**"), nil
	case "em", "i":
		inner, err := c.renderInline(n, depth)
		if err != nil {
			return "", err
		}
		return emphasize(inner, "*"), nil
	case "s", "del", "strike":
		inner, err := c.renderInline(n, depth)
		if err != nil {
			return "", err
		}
		return emphasize(inner, "*"), nil
	case "code", "pre":
		return "`" + textContent(n) + "`", nil
	case "ul":
		list, err := c.renderList(n, false, depth+1)
		if err != nil {
			return "", err
		}
		return "\n" + list, nil
	case "ol":
		list, err := c.renderList(n, true, depth+1)
		if err != nil {
			return "", err
		}
		return "\n" + list, nil
	case "blockquote":
		quote, err := c.renderQuote(n)
		if err != nil {
			return "", err
		}
		return "\n" + quote, nil
	case "a":
		inner, err := c.renderInline(n, depth)
		if err != nil {
			return "", err
		}
		return "[" + inner + "](" + attr(n, "href") + ")", nil
	case "hr":
		return "---", nil
	case "sup", "sub":
		// Markdown has no native equivalent, keep the original inline tag.
		inner, err := c.renderInline(n, depth)
		if err != nil {
			return "", err
		}
		return "<" + n.Data + ">" + inner + "</" + n.Data + ">", nil
	case "div":
		if attr(n, "class") == "" {
			return c.renderInline(n, depth)
		}
		return c.renderEmbed(n)
	case "iframe":
		return c.renderIframe(n, true)
	default:
		return "", &UnsupportedElementError{Tag: n.Data, Inline: true}
	}
}

// emphasize wraps text in the given marker, keeping any trailing spaces
// outside the closing marker so the output stays valid markdown:
// "hi " bolded becomes "**hi** ", never "**hi **".
func emphasize(text, marker string) string {
	trimmed := strings.TrimRight(text, " ")
	if trimmed == "" {
		return text
	}
	return marker + trimmed + marker + text[len(trimmed):]
}
