package storyboard

import "strings"

// Style is an immutable visual style selection. PromptModifier is appended to
// every segment's visual prompt; NegativePrompt lists things the image model
// should avoid for this style.
type Style struct {
	ID             string
	Name           string
	PromptModifier string
	Description    string
	NegativePrompt string
}

// Therapeutic reports whether the director should use the slow-paced
// healing strategy instead of the default viral pacing.
func (s Style) Therapeutic() bool {
	return s.ID == "oil_painting"
}

var styles = []Style{
	{
		ID:             "oil_painting",
		Name:           "Healing Impasto",
		PromptModifier: "authentic oil painting on canvas, (visible thick brushstrokes:1.4), palette knife texture, impasto style, dreamy atmosphere, Tyndall effect, dappled sunlight, soft focus. Subject Constraint: Back view of a solitary figure in rustic linen clothes, or close-up of nature details. Claude Monet style, fine art, traditional medium, no digital smooth finish.",
		Description:    "Warm, emotional, and textured. Focus on nature, light, and solitude.",
		NegativePrompt: "photorealistic, cgi, 3d render, smooth, shiny, digital art, vector, flat, low quality",
	},
	{
		ID:             "hyperreal",
		Name:           "Analog Photography",
		PromptModifier: "Shot on Kodak Portra 400, 35mm film grain, slight motion blur, raw photo, f/1.8 aperture, natural lighting, organic texture, imperfect composition, cinematic documentary style, highly detailed texture, no skin smoothing.",
		Description:    "Authentic film look, grainy, raw, and emotional.",
	},
	{
		ID:             "cyberpunk",
		Name:           "Neon Cyberpunk",
		PromptModifier: "Cyberpunk aesthetic, neon lights, rainy streets, optical aberration, chromatic aberration, high iso noise, cinematic lighting, gritty texture, shot on Arri Alexa",
		Description:    "High energy, futuristic, dark with bright neon accents.",
	},
	{
		ID:             "minimalist",
		Name:           "Clean Minimalist",
		PromptModifier: "Minimalist photography, soft natural lighting, pastel colors, clean lines, high key, studio quality, unoccluded, matte finish, architectural digest style",
		Description:    "Clean, modern, focus on subject matter with zero clutter.",
	},
	{
		ID:             "anime",
		Name:           "Vintage Anime",
		PromptModifier: "1990s anime style, hand drawn cel shading, grain, retro aesthetic, detailed clouds, Makoto Shinkai atmosphere, watercolour background",
		Description:    "Vibrant, emotional, high-quality animation style.",
	},
	{
		ID:             "dark_fantasy",
		Name:           "Dark Fantasy",
		PromptModifier: "Dark fantasy oil painting, gloomy atmosphere, fog, gothic architecture, dramatic chiaroscuro lighting, mysterious, ethereal, Frank Frazetta style, traditional art",
		Description:    "Moody, dramatic, and intense.",
	},
	{
		ID:             "sketch",
		Name:           "Charcoal Sketch",
		PromptModifier: "Charcoal sketch on textured paper, smudge marks, graphite pencil, rough lines, hand drawn, unfinished look, artistic",
		Description:    "Playful, clean, black and white hand-drawn look.",
	},
}

// Styles returns the style catalog in presentation order.
func Styles() []Style {
	cp := make([]Style, len(styles))
	copy(cp, styles)
	return cp
}

// StyleByID looks up a style by its identifier.
func StyleByID(id string) (Style, bool) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, style := range styles {
		if style.ID == normalized {
			return style, true
		}
	}
	return Style{}, false
}

// DefaultStyle returns the catalog's first entry.
func DefaultStyle() Style {
	return styles[0]
}
