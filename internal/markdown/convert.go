// Package markdown converts platform article HTML into canonical markdown
// documents. The conversion is recursive and two-tier: a block-level walker
// over the article body's direct children, and an inline renderer that
// preserves the original order of text and element children.
package markdown

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Converter renders article HTML as markdown. It holds no per-article
// state, so a failed conversion never affects later ones.
type Converter struct {
	logger *zap.Logger
}

// New creates a Converter.
func New(logger *zap.Logger) *Converter {
	return &Converter{logger: logger}
}

// Convert renders an article body fragment as markdown. Constructs outside
// the supported tag and embed vocabulary fail with UnsupportedElementError
// or UnsupportedEmbedError.
func (c *Converter) Convert(bodyHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}
	body := findElement(doc, "body")
	if body == nil {
		return "", fmt.Errorf("no body node in parsed fragment")
	}
	out, err := c.renderBlocks(body)
	if err != nil {
		return "", err
	}
	return out + "\n", nil
}

// renderBlocks walks the direct children of root as top-level blocks and
// joins the rendered blocks with blank lines.
func (c *Converter) renderBlocks(root *html.Node) (string, error) {
	var blocks []string
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			if n.Type == html.TextNode && !isWhitespaceText(n) {
				blocks = append(blocks, strings.TrimSpace(n.Data))
			}
			continue
		}
		block, err := c.renderBlock(n)
		if err != nil {
			return "", err
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (c *Converter) renderBlock(n *html.Node) (string, error) {
	switch n.Data {
	case "p":
		return c.renderInline(n, 0)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		inner, err := c.renderInline(n, 0)
		if err != nil {
			return "", err
		}
		level := int(n.Data[1] - '0')
		return strings.Repeat("#", level) + " " + inner, nil
	case "ul":
		return c.renderList(n, false, 0)
	case "ol":
		return c.renderList(n, true, 0)
	case "blockquote":
		return c.renderQuote(n)
	case "pre":
		code := strings.Trim(textContent(n), "\n")
		return "```\n" + code + "\n```", nil
	case "hr":
		return "---", nil
	case "div":
		if attr(n, "class") == "" {
			return c.renderBlocks(n)
		}
		if hasClass(n, "pullquote") {
			return c.renderQuote(n)
		}
		return c.renderEmbed(n)
	case "iframe":
		return c.renderIframe(n, false)
	default:
		return "", &UnsupportedElementError{Tag: n.Data}
	}
}

func (c *Converter) renderQuote(n *html.Node) (string, error) {
	inner, err := c.renderBlocks(n)
	if err != nil {
		return "", err
	}
	return prefixLines(inner, "> "), nil
}

func (c *Converter) renderList(n *html.Node, ordered bool, depth int) (string, error) {
	indent := strings.Repeat("  ", depth)
	var lines []string
	num := 1
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		item, err := c.renderInline(li, depth)
		if err != nil {
			return "", err
		}
		item = strings.TrimSpace(item)
		if ordered {
			lines = append(lines, fmt.Sprintf("%s%d. %s", indent, num, item))
			num++
		} else {
			lines = append(lines, indent+"- "+item)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// renderIframe only recognizes the platform's audio embed signature; any
// other iframe is outside the vocabulary.
func (c *Converter) renderIframe(n *html.Node, inline bool) (string, error) {
	src := attr(n, "src")
	if hasClass(n, "audio-embed") || strings.Contains(src, "/api/v1/audio/") {
		return fmt.Sprintf("[Audio](%s)", src), nil
	}
	return "", &UnsupportedElementError{Tag: "iframe", Inline: inline}
}
