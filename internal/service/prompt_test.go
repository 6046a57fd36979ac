package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/digkill/artrelay/internal/models"
)

func TestResolveStyle(t *testing.T) {
	for _, key := range []models.StyleKey{models.StyleGhibli, models.StylePixar, models.StyleAnime, models.StyleWatercolor} {
		got, style := ResolveStyle(string(key))
		assert.Equal(t, key, got)
		assert.NotEmpty(t, style.Template)
	}

	got, _ := ResolveStyle("  Anime ")
	assert.Equal(t, models.StyleAnime, got)

	for _, unknown := range []string{"", "cubism", "GHIBLI2"} {
		got, style := ResolveStyle(unknown)
		assert.Equal(t, DefaultStyle, got, unknown)
		assert.Equal(t, styles[DefaultStyle], style)
	}
}

func TestComposePromptLayout(t *testing.T) {
	_, style := ResolveStyle("watercolor")

	p := ComposePrompt(style, "  a cat on a sofa ", "", 4000, false)
	assert.Equal(t, style.Preamble+"\n\na cat on a sofa\n\n"+style.Template, p.Text)
	assert.Zero(t, p.Overflow)

	p = ComposePrompt(style, "a cat", "add a hat", 4000, false)
	assert.True(t, strings.HasSuffix(p.Text, "\n\nAdditional instructions: add a hat"))
}

func TestComposePromptOverflowIsOnlyReportedByDefault(t *testing.T) {
	_, style := ResolveStyle("ghibli")
	long := strings.Repeat("ж", 5000)

	p := ComposePrompt(style, long, "", 4000, false)
	assert.Greater(t, p.Overflow, 1000)
	assert.False(t, p.Truncated)
	assert.Greater(t, utf8.RuneCountInString(p.Text), 4000)

	p = ComposePrompt(style, long, "", 4000, true)
	assert.True(t, p.Truncated)
	assert.Equal(t, 4000, utf8.RuneCountInString(p.Text))
	assert.True(t, strings.HasPrefix(p.Text, style.Preamble))
	assert.True(t, utf8.ValidString(p.Text))
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, IsRefusal("I'm sorry, I can't assist with that."))
	assert.True(t, IsRefusal("  I cannot analyze this image."))
	assert.True(t, IsRefusal("I’m unable to help"))
	assert.True(t, IsRefusal(""))
	assert.False(t, IsRefusal("A sorry-looking dog sits in the rain."))
}

func TestDetailLevel(t *testing.T) {
	assert.Equal(t, 3, ParseDetailLevel(""))
	assert.Equal(t, 3, ParseDetailLevel("high"))
	assert.Equal(t, 4, ParseDetailLevel(" 4 "))
	assert.Equal(t, 5, ParseDetailLevel("12"))
	assert.Equal(t, 1, ParseDetailLevel("-2"))
	assert.Equal(t, "hd", qualityFor(4))
	assert.Equal(t, "standard", qualityFor(3))
}
