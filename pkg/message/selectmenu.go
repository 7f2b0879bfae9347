package message

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxSelectOptions = 25
	MaxSelectValues  = 25
)

// SelectOption is one entry of a select menu.
type SelectOption struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	Emoji       string     `json:"emoji,omitempty"`
	Default     bool       `json:"default"`
	Action      *BotAction `json:"action,omitempty"`
}

// OptionPatch holds a partial option update. Nil fields are left untouched.
type OptionPatch struct {
	Label       *string `json:"label,omitempty"`
	Value       *string `json:"value,omitempty"`
	Description *string `json:"description,omitempty"`
	Emoji       *string `json:"emoji,omitempty"`
	Default     *bool   `json:"default,omitempty"`
}

// SelectMenu is a string select menu. At most one option is the default.
type SelectMenu struct {
	ID          string         `json:"id"`
	CustomID    string         `json:"customId"`
	Placeholder string         `json:"placeholder,omitempty"`
	MinValues   *int           `json:"minValues,omitempty"`
	MaxValues   *int           `json:"maxValues,omitempty"`
	Options     []SelectOption `json:"options"`
}

// SelectMenuPatch holds a partial select menu update. The custom id is not
// editable: it follows the menu id so interactions can be routed back.
type SelectMenuPatch struct {
	Placeholder *string `json:"placeholder,omitempty"`
	MinValues   *int    `json:"minValues,omitempty"`
	MaxValues   *int    `json:"maxValues,omitempty"`
}

func (p SelectMenuPatch) isEmpty() bool {
	return p.Placeholder == nil && p.MinValues == nil && p.MaxValues == nil
}

// NewSelectMenu returns an empty menu with a fresh id and custom id.
func NewSelectMenu() *SelectMenu {
	id := NewID(PrefixSelect)
	return &SelectMenu{
		ID:       id,
		CustomID: id,
		Options:  []SelectOption{},
	}
}

// AddOption appends a new option and returns its id.
func (m *SelectMenu) AddOption() (string, error) {
	if len(m.Options) >= MaxSelectOptions {
		return "", &CapacityError{Container: "select menu", Limit: MaxSelectOptions}
	}
	n := len(m.Options) + 1
	for {
		if _, taken := m.OptionByValue(fmt.Sprintf("option_%d", n)); !taken {
			break
		}
		n++
	}
	opt := SelectOption{
		ID:    NewID(PrefixOption),
		Label: fmt.Sprintf("Option %d", n),
		Value: fmt.Sprintf("option_%d", n),
	}
	m.Options = append(m.Options, opt)
	return opt.ID, nil
}

// RemoveOption removes the option with the given id. Removing an absent id is a no-op.
func (m *SelectMenu) RemoveOption(id string) bool {
	idx := m.optionIndex(id)
	if idx < 0 {
		return false
	}
	m.Options = append(m.Options[:idx], m.Options[idx+1:]...)
	return true
}

// UpdateOption merges p into the option with the given id. Setting Default to
// true clears the flag on every other option. Returns false when id is absent.
func (m *SelectMenu) UpdateOption(id string, p OptionPatch) (bool, error) {
	idx := m.optionIndex(id)
	if idx < 0 {
		return false, nil
	}
	for field, v := range map[string]*string{"label": p.Label, "value": p.Value, "description": p.Description} {
		if v != nil && utf8.RuneCountInString(*v) > MaxOptionText {
			return false, NewValidationError(field, *v, fmt.Sprintf("must be at most %d characters", MaxOptionText))
		}
	}

	opt := &m.Options[idx]
	if p.Label != nil {
		opt.Label = *p.Label
	}
	if p.Value != nil {
		opt.Value = *p.Value
	}
	if p.Description != nil {
		opt.Description = *p.Description
	}
	if p.Emoji != nil {
		opt.Emoji = strings.TrimSpace(*p.Emoji)
	}
	if p.Default != nil {
		if *p.Default {
			for i := range m.Options {
				m.Options[i].Default = false
			}
		}
		opt.Default = *p.Default
	}
	return true, nil
}

// Option returns the option with the given id.
func (m *SelectMenu) Option(id string) (*SelectOption, bool) {
	idx := m.optionIndex(id)
	if idx < 0 {
		return nil, false
	}
	return &m.Options[idx], true
}

// OptionByValue returns the option whose value matches v.
func (m *SelectMenu) OptionByValue(v string) (*SelectOption, bool) {
	for i := range m.Options {
		if m.Options[i].Value == v {
			return &m.Options[i], true
		}
	}
	return nil, false
}

func (m *SelectMenu) optionIndex(id string) int {
	for i := range m.Options {
		if m.Options[i].ID == id {
			return i
		}
	}
	return -1
}

// Apply merges a menu-level patch. The resulting bounds are checked before
// anything changes: maxValues in [1,25], minValues in [0,25], min <= max.
func (m *SelectMenu) Apply(p SelectMenuPatch) error {
	minV, maxV := m.MinValues, m.MaxValues
	if p.MinValues != nil {
		minV = p.MinValues
	}
	if p.MaxValues != nil {
		maxV = p.MaxValues
	}
	if maxV != nil && (*maxV < 1 || *maxV > MaxSelectValues) {
		return NewValidationError("maxValues", *maxV, fmt.Sprintf("must be between 1 and %d", MaxSelectValues))
	}
	if minV != nil && (*minV < 0 || *minV > MaxSelectValues) {
		return NewValidationError("minValues", *minV, fmt.Sprintf("must be between 0 and %d", MaxSelectValues))
	}
	if minV != nil && maxV != nil && *minV > *maxV {
		return NewValidationError("minValues", *minV, "cannot exceed maxValues")
	}

	if p.Placeholder != nil {
		m.Placeholder = *p.Placeholder
	}
	if p.MinValues != nil {
		v := *p.MinValues
		m.MinValues = &v
	}
	if p.MaxValues != nil {
		v := *p.MaxValues
		m.MaxValues = &v
	}
	return nil
}

// Validate checks the menu invariants.
func (m *SelectMenu) Validate() error {
	if m == nil {
		return NewValidationError("selectMenu", nil, "select menu is nil")
	}
	if m.ID == "" {
		return NewValidationError("id", m.ID, "id is required")
	}
	if strings.TrimSpace(m.CustomID) == "" {
		return NewValidationError("customId", m.CustomID, "customId is required")
	}
	if len(m.Options) > MaxSelectOptions {
		return NewValidationError("options", len(m.Options), fmt.Sprintf("at most %d options allowed", MaxSelectOptions))
	}
	if m.MaxValues != nil && (*m.MaxValues < 1 || *m.MaxValues > MaxSelectValues) {
		return NewValidationError("maxValues", *m.MaxValues, fmt.Sprintf("must be between 1 and %d", MaxSelectValues))
	}
	if m.MinValues != nil && (*m.MinValues < 0 || *m.MinValues > MaxSelectValues) {
		return NewValidationError("minValues", *m.MinValues, fmt.Sprintf("must be between 0 and %d", MaxSelectValues))
	}
	if m.MinValues != nil && m.MaxValues != nil && *m.MinValues > *m.MaxValues {
		return NewValidationError("minValues", *m.MinValues, "cannot exceed maxValues")
	}

	defaults := 0
	seenIDs := make(map[string]struct{}, len(m.Options))
	seenValues := make(map[string]struct{}, len(m.Options))
	for i, opt := range m.Options {
		field := fmt.Sprintf("options[%d]", i)
		if opt.ID == "" {
			return NewValidationError(field+".id", opt.ID, "id is required")
		}
		if _, dup := seenIDs[opt.ID]; dup {
			return NewValidationError(field+".id", opt.ID, "duplicate option id")
		}
		seenIDs[opt.ID] = struct{}{}
		if _, dup := seenValues[opt.Value]; dup {
			return NewValidationError(field+".value", opt.Value, "duplicate option value")
		}
		seenValues[opt.Value] = struct{}{}
		for name, v := range map[string]string{"label": opt.Label, "value": opt.Value, "description": opt.Description} {
			if utf8.RuneCountInString(v) > MaxOptionText {
				return NewValidationError(field+"."+name, v, fmt.Sprintf("must be at most %d characters", MaxOptionText))
			}
		}
		if opt.Default {
			defaults++
		}
		if opt.Action != nil {
			if err := opt.Action.Validate(); err != nil {
				return prefixField(field+".action", err)
			}
		}
	}
	if defaults > 1 {
		return NewValidationError("options", defaults, "at most one option may be the default")
	}
	return nil
}

// Clone returns a deep copy of the menu.
func (m *SelectMenu) Clone() *SelectMenu {
	if m == nil {
		return nil
	}
	out := *m
	if m.MinValues != nil {
		v := *m.MinValues
		out.MinValues = &v
	}
	if m.MaxValues != nil {
		v := *m.MaxValues
		out.MaxValues = &v
	}
	if m.Options != nil {
		out.Options = make([]SelectOption, len(m.Options))
		for i, opt := range m.Options {
			opt.Action = opt.Action.Clone()
			out.Options[i] = opt
		}
	}
	return &out
}
