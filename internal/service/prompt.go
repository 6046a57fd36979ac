package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/digkill/artrelay/internal/models"
)

const DefaultStyle = models.StyleGhibli

// VisionInstruction is sent alongside every uploaded image.
const VisionInstruction = "Describe this image in detail for an artist who will repaint it. " +
	"Cover the subjects, their poses and expressions, clothing, the setting, the lighting, " +
	"the color palette and the overall composition. Do not mention that it is a photograph."

type Style struct {
	Name     string
	Preamble string
	Template string
}

var styles = map[models.StyleKey]Style{
	models.StyleGhibli: {
		Name:     "Studio Ghibli",
		Preamble: "Create a hand-painted Studio Ghibli style illustration of the following scene.",
		Template: "Use soft watercolor backgrounds, warm natural light, gentle pastel colors and " +
			"expressive characters with simple rounded features, in the spirit of Hayao Miyazaki films.",
	},
	models.StylePixar: {
		Name:     "Pixar",
		Preamble: "Create a Pixar style 3D animated rendering of the following scene.",
		Template: "Use smooth stylized 3D characters with large expressive eyes, soft global illumination, " +
			"subsurface scattering on skin and a bright cinematic color grade.",
	},
	models.StyleAnime: {
		Name:     "anime",
		Preamble: "Create a modern anime style illustration of the following scene.",
		Template: "Use clean cel shading, crisp line art, vibrant saturated colors, detailed hair highlights " +
			"and a dynamic composition typical of contemporary Japanese animation.",
	},
	models.StyleWatercolor: {
		Name:     "watercolor",
		Preamble: "Create a traditional watercolor painting of the following scene.",
		Template: "Use loose translucent washes, visible paper texture, soft bleeding edges and a restrained " +
			"palette, leaving some areas of white paper untouched.",
	},
}

// ResolveStyle maps a caller-supplied key onto a known style. Unknown and
// empty keys resolve to DefaultStyle.
func ResolveStyle(key string) (models.StyleKey, Style) {
	k := models.StyleKey(strings.ToLower(strings.TrimSpace(key)))
	if s, ok := styles[k]; ok {
		return k, s
	}
	return DefaultStyle, styles[DefaultStyle]
}

// ComposedPrompt is the text sent to the image model. Overflow is the number
// of runes above the configured limit, computed whether or not Text was cut.
type ComposedPrompt struct {
	Text      string
	Overflow  int
	Truncated bool
}

func ComposePrompt(style Style, description, userPrompt string, maxChars int, truncate bool) ComposedPrompt {
	var b strings.Builder
	b.WriteString(style.Preamble)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\n")
	b.WriteString(style.Template)
	if p := strings.TrimSpace(userPrompt); p != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(p)
	}

	out := ComposedPrompt{Text: b.String()}
	if maxChars <= 0 {
		return out
	}
	if n := utf8.RuneCountInString(out.Text); n > maxChars {
		out.Overflow = n - maxChars
		if truncate {
			out.Text = truncateRunes(out.Text, maxChars)
			out.Truncated = true
		}
	}
	return out
}

func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

var refusalPrefixes = []string{
	"i'm sorry",
	"i’m sorry",
	"i am sorry",
	"i can't",
	"i can’t",
	"i cannot",
	"i am unable",
	"i'm unable",
	"i’m unable",
	"sorry, i",
}

// IsRefusal reports whether the vision model declined to describe the image.
func IsRefusal(description string) bool {
	d := strings.ToLower(strings.TrimSpace(description))
	if d == "" {
		return true
	}
	for _, p := range refusalPrefixes {
		if strings.HasPrefix(d, p) {
			return true
		}
	}
	return false
}

const (
	MinDetailLevel     = 1
	MaxDetailLevel     = 5
	DefaultDetailLevel = 3
)

// ParseDetailLevel reads the optional form value. Missing or unparsable input
// gives DefaultDetailLevel; out of range values are clamped.
func ParseDetailLevel(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDetailLevel
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultDetailLevel
	}
	return NormalizeDetailLevel(n)
}

func NormalizeDetailLevel(n int) int {
	switch {
	case n == 0:
		return DefaultDetailLevel
	case n < MinDetailLevel:
		return MinDetailLevel
	case n > MaxDetailLevel:
		return MaxDetailLevel
	}
	return n
}

func qualityFor(detailLevel int) string {
	if detailLevel >= 4 {
		return "hd"
	}
	return "standard"
}
