package generation

// Pricing describes the billing unit and rate of a model, when known.
type Pricing struct {
	Unit string  `json:"unit"` // e.g. "image", "second", "generation"
	Rate float64 `json:"rate"` // USD per unit
}

// Constraints bounds the parameters a model accepts.
type Constraints struct {
	MinDurationSec int      `json:"min_duration_sec,omitempty"`
	MaxDurationSec int      `json:"max_duration_sec,omitempty"`
	Resolutions    []string `json:"resolutions,omitempty"`
	AspectRatios   []string `json:"aspect_ratios,omitempty"`
	MinPolygons    int      `json:"min_polygons,omitempty"`
	MaxPolygons    int      `json:"max_polygons,omitempty"`
}

// AllowsDuration checks a requested duration against the bounds.
// A zero duration means the caller left it to the provider default.
func (c *Constraints) AllowsDuration(seconds int) bool {
	if c == nil || seconds == 0 {
		return true
	}
	if c.MinDurationSec > 0 && seconds < c.MinDurationSec {
		return false
	}
	if c.MaxDurationSec > 0 && seconds > c.MaxDurationSec {
		return false
	}
	return true
}

// AllowsAspectRatio checks a requested aspect ratio against the allow list.
func (c *Constraints) AllowsAspectRatio(ratio string) bool {
	if c == nil || ratio == "" || len(c.AspectRatios) == 0 {
		return true
	}
	for _, r := range c.AspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// ModelDescriptor describes one named configuration of a provider.
type ModelDescriptor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Capabilities []Capability `json:"capabilities"`
	Pricing      *Pricing     `json:"pricing,omitempty"`
	Constraints  *Constraints `json:"constraints,omitempty"`
}

// Supports checks if the model has a specific capability.
func (m *ModelDescriptor) Supports(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// ProviderDescriptor describes a registered vendor adapter: its identity,
// its ordered model list and the modality it produces. Immutable after
// registry initialization.
type ProviderDescriptor struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Modality Modality          `json:"modality"`
	Models   []ModelDescriptor `json:"models"`
	// TaskTypes lists the asynchronous task types this provider creates.
	// A task handle is only meaningful paired with its originating
	// provider and one of these types.
	TaskTypes []TaskType `json:"task_types,omitempty"`
}

// Model returns the model with the given id.
func (p *ProviderDescriptor) Model(id string) (*ModelDescriptor, bool) {
	for i := range p.Models {
		if p.Models[i].ID == id {
			return &p.Models[i], true
		}
	}
	return nil, false
}

// DefaultModel returns the provider's first-listed model.
func (p *ProviderDescriptor) DefaultModel() (*ModelDescriptor, bool) {
	if len(p.Models) == 0 {
		return nil, false
	}
	return &p.Models[0], true
}

// ModelIDs returns the ids of all models, in declaration order.
func (p *ProviderDescriptor) ModelIDs() []string {
	ids := make([]string, len(p.Models))
	for i, m := range p.Models {
		ids[i] = m.ID
	}
	return ids
}

// OwnsTaskType checks whether the provider creates tasks of the given type.
func (p *ProviderDescriptor) OwnsTaskType(t TaskType) bool {
	for _, tt := range p.TaskTypes {
		if tt == t {
			return true
		}
	}
	return false
}
