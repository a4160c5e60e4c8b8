package provider

import (
	"github.com/maauso/mediagen/internal/asset"
)

// Family groups providers that share a wire format.
type Family string

const (
	// FamilyGemini is the synchronous generateContent image API.
	FamilyGemini Family = "gemini"
	// FamilyChat is the synchronous OpenAI-compatible chat completion image API.
	FamilyChat Family = "chat"
	// FamilyKling is the asynchronous omni-image API.
	FamilyKling Family = "kling"
	// FamilyUnified is the asynchronous JSON video API (veo, grok, jimeng).
	FamilyUnified Family = "unified"
	// FamilySora is the asynchronous multipart video API.
	FamilySora Family = "sora"
)

// Async returns true if the family returns a task id that must be polled.
func (f Family) Async() bool {
	return f == FamilyKling || f == FamilyUnified || f == FamilySora
}

// Option is one selectable resolution (image) or duration (video) choice.
type Option struct {
	Value   string `json:"value"`
	Quality string `json:"quality,omitempty"`
}

// Model is the descriptive metadata of one provider id.
type Model struct {
	ID                    string          `json:"id"`
	DisplayName           string          `json:"display_name"`
	MediaType             asset.MediaType `json:"media_type"`
	Family                Family          `json:"family"`
	MaxReferenceImages    int             `json:"max_reference_images"`
	SupportedAspectRatios []string        `json:"supported_aspect_ratios"`
	Options               []Option        `json:"options"`
}

// Async returns true if the model is served by an asynchronous family.
func (m Model) Async() bool {
	return m.Family.Async()
}

// AspectRatio returns requested if supported, otherwise the first supported ratio.
func (m Model) AspectRatio(requested string) string {
	for _, r := range m.SupportedAspectRatios {
		if r == requested {
			return r
		}
	}
	if len(m.SupportedAspectRatios) == 0 {
		return requested
	}
	return m.SupportedAspectRatios[0]
}

// OptionAt returns the option at index i, falling back to the first option.
func (m Model) OptionAt(i int) (Option, int) {
	if len(m.Options) == 0 {
		return Option{}, 0
	}
	if i < 0 || i >= len(m.Options) {
		i = 0
	}
	return m.Options[i], i
}

// Label renders the duration or size label shown next to an asset.
func (m Model) Label(o Option) string {
	if m.MediaType == asset.MediaVideo && o.Value != "" {
		return o.Value + "s"
	}
	return o.Value
}

// ClampReferences truncates refs to the model's cap.
func (m Model) ClampReferences(refs []ReferenceImage) []ReferenceImage {
	if len(refs) <= m.MaxReferenceImages {
		return refs
	}
	return refs[:m.MaxReferenceImages]
}

// Catalog is a read-only lookup of models by provider id.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// NewCatalog builds a catalog preserving the given order.
func NewCatalog(models ...Model) *Catalog {
	c := &Catalog{
		models: models,
		byID:   make(map[string]Model, len(models)),
	}
	for _, m := range models {
		c.byID[m.ID] = m
	}
	return c
}

// Get returns the model for providerID.
func (c *Catalog) Get(providerID string) (Model, bool) {
	m, ok := c.byID[providerID]
	return m, ok
}

// List returns the models of mediaType, or all models when mediaType is empty.
func (c *Catalog) List(mediaType asset.MediaType) []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		if mediaType == "" || m.MediaType == mediaType {
			out = append(out, m)
		}
	}
	return out
}

var (
	extendedRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}
	gpt1Ratios     = []string{"1:1", "2:3", "3:2"}
	gpt15Ratios    = []string{"1:1", "2:3", "3:2", "9:16", "16:9"}
	grokRatios     = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}
	klingO1Ratios  = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "9:16", "16:9", "21:9"}
	jimengRatios   = []string{"1:1", "3:4", "4:3", "9:16", "16:9", "21:9"}
	portraitWide   = []string{"9:16", "16:9"}
)

func sizes(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v}
	}
	return out
}

// DefaultCatalog returns the models served by the gateway.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Model{ID: "gemini-2.5-flash-image", DisplayName: "NANO BANANA", MediaType: asset.MediaImage, Family: FamilyGemini,
			MaxReferenceImages: 4, SupportedAspectRatios: extendedRatios, Options: sizes("AUTO")},
		Model{ID: "gemini-3-pro-image-preview", DisplayName: "Nano Banana Pro", MediaType: asset.MediaImage, Family: FamilyGemini,
			MaxReferenceImages: 8, SupportedAspectRatios: extendedRatios, Options: sizes("1K", "2K", "4K")},
		Model{ID: "kling-image-o1", DisplayName: "Kling Image O1", MediaType: asset.MediaImage, Family: FamilyKling,
			MaxReferenceImages: 4, SupportedAspectRatios: klingO1Ratios, Options: sizes("1K", "2K")},
		Model{ID: "gpt-image-1-all", DisplayName: "GPT Image 1", MediaType: asset.MediaImage, Family: FamilyChat,
			MaxReferenceImages: 4, SupportedAspectRatios: gpt1Ratios, Options: sizes("AUTO")},
		Model{ID: "gpt-image-1.5-all", DisplayName: "GPT Image 1.5", MediaType: asset.MediaImage, Family: FamilyChat,
			MaxReferenceImages: 4, SupportedAspectRatios: gpt15Ratios, Options: sizes("AUTO")},
		Model{ID: "grok-4-image", DisplayName: "Grok 4 Image", MediaType: asset.MediaImage, Family: FamilyChat,
			MaxReferenceImages: 4, SupportedAspectRatios: grokRatios, Options: sizes("AUTO")},
		Model{ID: "jimeng-4.5", DisplayName: "Jimeng 4.5", MediaType: asset.MediaImage, Family: FamilyChat,
			MaxReferenceImages: 8, SupportedAspectRatios: extendedRatios, Options: sizes("2K", "4K")},

		Model{ID: "sora-2-all", DisplayName: "Sora 2", MediaType: asset.MediaVideo, Family: FamilySora,
			MaxReferenceImages: 1, SupportedAspectRatios: portraitWide,
			Options: []Option{{Value: "15", Quality: "SD"}, {Value: "10", Quality: "SD"}}},
		Model{ID: "sora-2-pro-all", DisplayName: "Sora 2 Pro", MediaType: asset.MediaVideo, Family: FamilySora,
			MaxReferenceImages: 1, SupportedAspectRatios: portraitWide,
			Options: []Option{{Value: "15", Quality: "HD"}, {Value: "25", Quality: "SD"}}},
		Model{ID: "veo_3_1-fast", DisplayName: "VEO 3.1 FAST", MediaType: asset.MediaVideo, Family: FamilyUnified,
			MaxReferenceImages: 2, SupportedAspectRatios: portraitWide,
			Options: []Option{{Value: "8", Quality: "SD"}}},
		Model{ID: "veo3.1-pro", DisplayName: "VEO 3.1 PRO", MediaType: asset.MediaVideo, Family: FamilyUnified,
			MaxReferenceImages: 2, SupportedAspectRatios: portraitWide,
			Options: []Option{{Value: "8", Quality: "HD"}}},
		Model{ID: "jimeng-video-3.0", DisplayName: "Jimeng Video 3.0", MediaType: asset.MediaVideo, Family: FamilyUnified,
			MaxReferenceImages: 1, SupportedAspectRatios: jimengRatios,
			Options: []Option{{Value: "5", Quality: "SD"}, {Value: "10", Quality: "SD"}}},
		Model{ID: "grok-video-3", DisplayName: "Grok Video 3", MediaType: asset.MediaVideo, Family: FamilyUnified,
			MaxReferenceImages: 2, SupportedAspectRatios: []string{"9:16", "16:9", "2:3", "3:2", "1:1"},
			Options: []Option{{Value: "6", Quality: "SD"}}},
	)
}
