package indicators

import "stockIndicators/internal/theme"

// Presentation holds the settings that only affect how a series is drawn.
// Changing them never triggers a recompute.
type Presentation struct {
	Bands       Bands
	Color       string
	SignalColor string
}

// DefaultPresentation returns the default bands and colors for a kind.
func DefaultPresentation(kind Kind) Presentation {
	p := Presentation{Color: "#0975da", SignalColor: "#ffa500"}
	switch kind {
	case KindRSI:
		p.Bands = Bands{OverBought: 70, OverSold: 30}
	case KindCCI:
		p.Bands = Bands{OverBought: 100, OverSold: -100}
	case KindWilliamsR:
		p.Bands = Bands{OverBought: -20, OverSold: -80}
	case KindSMI:
		p.Bands = Bands{OverBought: 40, OverSold: -40}
	}
	return p
}

// PresentationRule is a partial override stored in a theme registry. Nil
// fields leave the underlying setting untouched.
type PresentationRule struct {
	OverBought  *float64 `yaml:"overBought,omitempty"`
	OverSold    *float64 `yaml:"overSold,omitempty"`
	Color       *string  `yaml:"color,omitempty"`
	SignalColor *string  `yaml:"signalColor,omitempty"`
}

// Apply returns base with the rule's set fields overridden.
func (r PresentationRule) Apply(base Presentation) Presentation {
	if r.OverBought != nil {
		base.Bands.OverBought = *r.OverBought
	}
	if r.OverSold != nil {
		base.Bands.OverSold = *r.OverSold
	}
	if r.Color != nil {
		base.Color = *r.Color
	}
	if r.SignalColor != nil {
		base.SignalColor = *r.SignalColor
	}
	return base
}

// Merge copies the set fields of other into r.
func (r *PresentationRule) Merge(other PresentationRule) {
	if other.OverBought != nil {
		r.OverBought = other.OverBought
	}
	if other.OverSold != nil {
		r.OverSold = other.OverSold
	}
	if other.Color != nil {
		r.Color = other.Color
	}
	if other.SignalColor != nil {
		r.SignalColor = other.SignalColor
	}
}

// ResolvePresentation starts from the kind's defaults and applies every rule
// matching tags, least specific first, so the most specific rule wins.
func ResolvePresentation(rules *theme.Registry[Kind, PresentationRule], kind Kind, tags ...string) Presentation {
	p := DefaultPresentation(kind)
	if rules == nil {
		return p
	}
	for _, r := range rules.Match(kind, tags...) {
		p = r.Apply(p)
	}
	return p
}
