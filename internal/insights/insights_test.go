package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeadingThenProse(t *testing.T) {
	blocks := Parse("## Summary\n\nprose")
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Kind: KindHeading, Level: 2, Text: "Summary"}, blocks[0])
	assert.Equal(t, Block{Kind: KindProse, Text: "prose"}, blocks[1])
}

func TestParseCallouts(t *testing.T) {
	text := "1. **Key Findings** - revenue grew\n- item one\n\n2. **Recommendations**\nship it"
	blocks := Parse(text)
	require.Len(t, blocks, 2)
	assert.Equal(t, KindCallout, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Number)
	assert.Equal(t, "Key Findings", blocks[0].Text)
	assert.Equal(t, "revenue grew\n- item one", blocks[0].Body)
	assert.Equal(t, 2, blocks[1].Number)
	assert.Equal(t, "ship it", blocks[1].Body)
}

func TestParseHeadingWithoutBlankLine(t *testing.T) {
	blocks := Parse("# Title\nline one\nline two")
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, "line one\nline two", blocks[1].Text)
}

func TestParseIsTotal(t *testing.T) {
	inputs := []string{"", "\n\n\n", "#", "1.", "**bold**", "#nospace", strings.Repeat("x\n\n", 50), "\r\n## A\r\n\r\nb"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "%q", in)
	}
	assert.Empty(t, Parse(""))
	assert.Equal(t, KindProse, Parse("#nospace")[0].Kind)
	assert.Len(t, Parse("\r\n## A\r\n\r\nb"), 2)
}
