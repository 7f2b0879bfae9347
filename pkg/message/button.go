package message

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ButtonStyle mirrors the Discord button styles the editor offers.
type ButtonStyle string

const (
	StylePrimary   ButtonStyle = "primary"
	StyleSecondary ButtonStyle = "secondary"
	StyleSuccess   ButtonStyle = "success"
	StyleDanger    ButtonStyle = "danger"
	StyleLink      ButtonStyle = "link"
)

// Valid reports whether s is a known style.
func (s ButtonStyle) Valid() bool {
	switch s {
	case StylePrimary, StyleSecondary, StyleSuccess, StyleDanger, StyleLink:
		return true
	}
	return false
}

const (
	MaxButtonLabel = 80
	MaxOptionText  = 100
)

// Button is an interactive button inside an action row or section accessory.
// URL is used iff Style is link; link buttons never carry an Action.
type Button struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Style    ButtonStyle `json:"style"`
	Disabled bool        `json:"disabled"`
	Emoji    string      `json:"emoji,omitempty"`
	URL      string      `json:"url,omitempty"`
	Action   *BotAction  `json:"action,omitempty"`
}

// NewButton returns a button with editor defaults.
func NewButton() *Button {
	return &Button{
		ID:    NewID(PrefixButton),
		Label: "Button",
		Style: StylePrimary,
	}
}

// ButtonPatch holds a partial button update. Nil fields are left untouched.
type ButtonPatch struct {
	Label    *string      `json:"label,omitempty"`
	Style    *ButtonStyle `json:"style,omitempty"`
	Disabled *bool        `json:"disabled,omitempty"`
	Emoji    *string      `json:"emoji,omitempty"`
	URL      *string      `json:"url,omitempty"`
}

func (p ButtonPatch) isEmpty() bool {
	return p.Label == nil && p.Style == nil && p.Disabled == nil && p.Emoji == nil && p.URL == nil
}

// Apply merges the patch into b. The patch is checked first so a rejected
// patch leaves b unchanged.
func (b *Button) Apply(p ButtonPatch) error {
	if p.Label != nil && utf8.RuneCountInString(*p.Label) > MaxButtonLabel {
		return NewValidationError("label", *p.Label, fmt.Sprintf("must be at most %d characters", MaxButtonLabel))
	}
	if p.Style != nil && !p.Style.Valid() {
		return NewValidationError("style", *p.Style, "unknown button style")
	}
	style := b.Style
	if p.Style != nil {
		style = *p.Style
	}
	if p.URL != nil && strings.TrimSpace(*p.URL) != "" && style != StyleLink {
		return NewValidationError("url", *p.URL, "only link buttons carry a url")
	}

	if p.Label != nil {
		b.Label = *p.Label
	}
	if p.Style != nil {
		b.Style = *p.Style
		if b.Style != StyleLink {
			b.URL = ""
		} else {
			b.Action = nil
		}
	}
	if p.Disabled != nil {
		b.Disabled = *p.Disabled
	}
	if p.Emoji != nil {
		b.Emoji = strings.TrimSpace(*p.Emoji)
	}
	if p.URL != nil {
		b.URL = strings.TrimSpace(*p.URL)
	}
	return nil
}

// Validate checks the button invariants.
func (b *Button) Validate() error {
	if b == nil {
		return NewValidationError("button", nil, "button is nil")
	}
	if b.ID == "" {
		return NewValidationError("id", b.ID, "id is required")
	}
	if utf8.RuneCountInString(b.Label) > MaxButtonLabel {
		return NewValidationError("label", b.Label, fmt.Sprintf("must be at most %d characters", MaxButtonLabel))
	}
	if !b.Style.Valid() {
		return NewValidationError("style", b.Style, "unknown button style")
	}
	if b.Style == StyleLink {
		if b.URL == "" {
			return NewValidationError("url", b.URL, "link buttons require a url")
		}
		if b.Action != nil {
			return NewValidationError("action", b.Action.Name, "link buttons cannot carry an action")
		}
	} else if b.URL != "" {
		return NewValidationError("url", b.URL, "only link buttons may set a url")
	}
	if b.Action != nil {
		if err := b.Action.Validate(); err != nil {
			return prefixField("action", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the button.
func (b *Button) Clone() *Button {
	if b == nil {
		return nil
	}
	out := *b
	out.Action = b.Action.Clone()
	return &out
}
