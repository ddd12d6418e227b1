package styles

import (
	"os"
	"path/filepath"
	"sort"
)

// Prompts holds the three per-style text prompts consumed by the pipeline:
// Composition drives the storyboard layout, Quality is the post-processing
// instruction appended to it, Motion drives per-frame video generation.
type Prompts struct {
	Composition string
	Quality     string
	Motion      string
}

// DefaultStyle is the fallback for unrecognized style identifiers. Style is
// advisory, not safety-critical, so unknown ids resolve rather than fail.
const DefaultStyle = "romantic"

var catalog = map[string]Prompts{
	"romantic": {
		Composition: "Compose the reference photos into a warm, intimate storyboard of nine scenes. Golden-hour light, soft focus backgrounds, tender moments between the subjects. Keep faces recognizable and central in every scene.",
		Quality:     "Cinematic color grading, film grain, shallow depth of field, high detail on faces, no text or watermarks.",
		Motion:      "Slow, tender camera drift. Gentle breeze in hair and fabric, soft light flicker, subtle smiles. Calm and grounded, no sudden movement.",
	},
	"vintage": {
		Composition: "Compose the reference photos into a nostalgic nine-scene storyboard styled like a 1970s family album. Faded warm tones, sun flare, slightly washed-out skies. Keep faces recognizable and central in every scene.",
		Quality:     "Kodachrome palette, visible grain, soft vignette, authentic period texture, no text or watermarks.",
		Motion:      "Handheld super-8 feel: slight frame weave, dust and light leaks drifting, unhurried motion. Subjects move naturally and slowly.",
	},
	"playful": {
		Composition: "Compose the reference photos into a bright, joyful nine-scene storyboard. Saturated colors, candid laughter, dynamic angles. Keep faces recognizable and central in every scene.",
		Quality:     "Crisp daylight exposure, vivid but natural color, high sharpness, no text or watermarks.",
		Motion:      "Lively but smooth movement: hair bouncing, confetti or leaves drifting, quick smiles and glances. Energetic without jump cuts.",
	},
	"cinematic": {
		Composition: "Compose the reference photos into a dramatic nine-scene storyboard with widescreen framing. Moody contrast, directional light, strong silhouettes. Keep faces recognizable and central in every scene.",
		Quality:     "Teal-and-orange grade, anamorphic flare, deep blacks, high dynamic range, no text or watermarks.",
		Motion:      "Slow push-ins and reveals, volumetric light shifting, atmosphere like drifting smoke or rain. Deliberate, composed movement.",
	},
}

// Lookup resolves a style identifier to its prompts. Unknown identifiers
// fall back to DefaultStyle.
func Lookup(styleID string) Prompts {
	if p, ok := catalog[styleID]; ok {
		return p
	}
	return catalog[DefaultStyle]
}

// IDs returns the catalog's style identifiers in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Known reports whether the style id is in the catalog.
func Known(styleID string) bool {
	_, ok := catalog[styleID]
	return ok
}

// ResolveAudioTrack returns the path of the style's background track
// (<musicDir>/<style>.mp3), or "" when no track exists. A missing track is
// not an error — the compositor simply skips the audio-mix pass.
func ResolveAudioTrack(musicDir, styleID string) string {
	if !Known(styleID) {
		styleID = DefaultStyle
	}

	path := filepath.Join(musicDir, styleID+".mp3")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
