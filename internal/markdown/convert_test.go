package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConverter() *Converter {
	return New(zap.NewNop())
}

func TestConvertParagraphsAndHeadings(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<h1>Title</h1><p>First paragraph.</p><h3>Section</h3><p>Second.</p>`)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nFirst paragraph.\n\n### Section\n\nSecond.\n", out)
}

func TestConvertLists(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<ul><li>one</li><li>two</li></ul><ol><li>first</li><li>second</li></ol>`)
	require.NoError(t, err)
	assert.Equal(t, "- one\n- two\n\n1. first\n2. second\n", out)
}

func TestConvertBlockquoteReprefixesEveryLine(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<blockquote><p>line one</p><p>line two</p></blockquote>`)
	require.NoError(t, err)
	assert.Equal(t, "> line one\n>\n> line two\n", out)
}

func TestConvertPullquoteDivActsAsBlockquote(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<div class="pullquote"><p>wise words</p></div>`)
	require.NoError(t, err)
	assert.Equal(t, "> wise words\n", out)
}

func TestConvertPreBecomesFencedCode(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert("<pre>x := 1\ny := 2</pre>")
	require.NoError(t, err)
	assert.Equal(t, "```\nx := 1\ny := 2\n```\n", out)
}

func TestConvertUnclassedDivUnwraps(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<div><p>inside</p></div>`)
	require.NoError(t, err)
	assert.Equal(t, "inside\n", out)
}

func TestConvertUnsupportedTagFails(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	_, err := c.Convert(`<p>ok</p><canvas></canvas>`)
	var elemErr *UnsupportedElementError
	require.ErrorAs(t, err, &elemErr)
	assert.Equal(t, "canvas", elemErr.Tag)
	assert.False(t, elemErr.Inline)
}

func TestConvertAudioIframe(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<iframe src="https://alice.substack.com/api/v1/audio/upload/x.mp3"></iframe>`)
	require.NoError(t, err)
	assert.Equal(t, "[Audio](https://alice.substack.com/api/v1/audio/upload/x.mp3)\n", out)

	_, err = c.Convert(`<iframe src="https://example.org/widget"></iframe>`)
	var elemErr *UnsupportedElementError
	require.ErrorAs(t, err, &elemErr)
	assert.Equal(t, "iframe", elemErr.Tag)
}

func TestConvertIsDeterministic(t *testing.T) {
	t.Parallel()

	input := `<h2>Heading</h2><p>Some <strong>bold </strong>and <em>italic</em> text.</p><ul><li>a</li><li>b</li></ul>`
	c := newTestConverter()
	first, err := c.Convert(input)
	require.NoError(t, err)
	second, err := c.Convert(input)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-running conversion must yield byte-identical output")
}

func TestConvertHorizontalRule(t *testing.T) {
	t.Parallel()

	c := newTestConverter()
	out, err := c.Convert(`<p>before</p><hr><p>after</p>`)
	require.NoError(t, err)
	assert.Equal(t, "before\n\n---\n\nafter\n", out)
}
