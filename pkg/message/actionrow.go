package message

import (
	"encoding/json"
	"fmt"
)

// MaxRowComponents is the Discord limit of components per action row.
const MaxRowComponents = 5

// ComponentKind tags the variant held by a RowComponent.
type ComponentKind string

const (
	KindButton ComponentKind = "button"
	KindSelect ComponentKind = "select"
)

// RowComponent holds exactly one of Button or Select.
//
// On the wire the variant is tagged by a "type" field. Documents written
// before the tag existed are still accepted: a "style" key marks a button.
type RowComponent struct {
	Button *Button
	Select *SelectMenu
}

// Kind returns the variant tag.
func (c RowComponent) Kind() ComponentKind {
	if c.Select != nil {
		return KindSelect
	}
	return KindButton
}

// ID returns the id of the held component.
func (c RowComponent) ID() string {
	switch {
	case c.Button != nil:
		return c.Button.ID
	case c.Select != nil:
		return c.Select.ID
	}
	return ""
}

func (c RowComponent) MarshalJSON() ([]byte, error) {
	switch {
	case c.Button != nil:
		return marshalTagged("type", string(KindButton), c.Button)
	case c.Select != nil:
		return marshalTagged("type", string(KindSelect), c.Select)
	}
	return nil, fmt.Errorf("row component holds no variant")
}

func (c *RowComponent) UnmarshalJSON(data []byte) error {
	var head struct {
		Type  ComponentKind   `json:"type"`
		Style json.RawMessage `json:"style"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	kind := head.Type
	if kind == "" {
		kind = KindSelect
		if len(head.Style) > 0 {
			kind = KindButton
		}
	}

	*c = RowComponent{}
	switch kind {
	case KindButton:
		var b Button
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		c.Button = &b
	case KindSelect:
		var m SelectMenu
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		c.Select = &m
	default:
		return fmt.Errorf("unknown row component type %q", head.Type)
	}
	return nil
}

// Clone returns a deep copy.
func (c RowComponent) Clone() RowComponent {
	return RowComponent{Button: c.Button.Clone(), Select: c.Select.Clone()}
}

// ComponentPatch is a partial update for either row component kind. Button
// fields may only target buttons and menu fields only menus.
type ComponentPatch struct {
	ButtonPatch
	SelectMenuPatch
}

// ActionRow is an ordered group of up to five buttons or a single select menu.
type ActionRow struct {
	Components []RowComponent `json:"components"`
}

// NewActionRow returns an empty row.
func NewActionRow() *ActionRow {
	return &ActionRow{Components: []RowComponent{}}
}

// HasSelectMenu reports whether the row holds a select menu.
func (r *ActionRow) HasSelectMenu() bool {
	for _, c := range r.Components {
		if c.Select != nil {
			return true
		}
	}
	return false
}

// AddComponent appends a new component of the given kind and returns its id.
// It fails with a *CapacityError, leaving the row unchanged, when the row is
// full, when a select menu would share the row, or when a button would join a
// select menu.
func (r *ActionRow) AddComponent(kind ComponentKind) (string, error) {
	switch {
	case len(r.Components) >= MaxRowComponents:
		return "", &CapacityError{Container: "action row", Limit: MaxRowComponents}
	case kind == KindSelect && len(r.Components) > 0:
		return "", &CapacityError{Container: "action row", Limit: 1, Reason: "a select menu must be alone in its row"}
	case kind == KindButton && r.HasSelectMenu():
		return "", &CapacityError{Container: "action row", Limit: 1, Reason: "row already holds a select menu"}
	}

	var c RowComponent
	switch kind {
	case KindButton:
		c.Button = NewButton()
	case KindSelect:
		c.Select = NewSelectMenu()
	default:
		return "", NewValidationError("type", kind, "unknown component kind")
	}
	r.Components = append(r.Components, c)
	return c.ID(), nil
}

// RemoveComponent removes the component with the given id. It is idempotent.
func (r *ActionRow) RemoveComponent(id string) bool {
	idx := r.index(id)
	if idx < 0 {
		return false
	}
	r.Components = append(r.Components[:idx], r.Components[idx+1:]...)
	return true
}

// UpdateComponent merges p into the component with the given id. It returns
// false without error when the id is absent.
func (r *ActionRow) UpdateComponent(id string, p ComponentPatch) (bool, error) {
	idx := r.index(id)
	if idx < 0 {
		return false, nil
	}
	if p.ButtonPatch.isEmpty() && p.SelectMenuPatch.isEmpty() {
		return false, NewValidationError("patch", id, "patch has no editable fields")
	}
	c := r.Components[idx]
	switch {
	case c.Button != nil:
		if !p.SelectMenuPatch.isEmpty() {
			return false, NewValidationError("patch", id, "select menu fields cannot be applied to a button")
		}
		if err := c.Button.Apply(p.ButtonPatch); err != nil {
			return false, err
		}
	case c.Select != nil:
		if !p.ButtonPatch.isEmpty() {
			return false, NewValidationError("patch", id, "button fields cannot be applied to a select menu")
		}
		if err := c.Select.Apply(p.SelectMenuPatch); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Component returns the component with the given id.
func (r *ActionRow) Component(id string) (RowComponent, bool) {
	idx := r.index(id)
	if idx < 0 {
		return RowComponent{}, false
	}
	return r.Components[idx], true
}

// SelectMenu returns the select menu with the given id.
func (r *ActionRow) SelectMenu(id string) (*SelectMenu, bool) {
	c, ok := r.Component(id)
	if !ok || c.Select == nil {
		return nil, false
	}
	return c.Select, true
}

// Button returns the button with the given id.
func (r *ActionRow) Button(id string) (*Button, bool) {
	c, ok := r.Component(id)
	if !ok || c.Button == nil {
		return nil, false
	}
	return c.Button, true
}

func (r *ActionRow) index(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range r.Components {
		if c.ID() == id {
			return i
		}
	}
	return -1
}

// SetAction binds action to the button or option addressed by target. A nil
// action unbinds. The action is validated before it is attached.
func (r *ActionRow) SetAction(target ActionTarget, action *BotAction) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, err
	}
	if action != nil {
		if err := action.Validate(); err != nil {
			return false, err
		}
	}

	switch target.OwnerKind {
	case OwnerButton:
		b, ok := r.Button(target.OwnerID)
		if !ok {
			return false, nil
		}
		if b.Style == StyleLink && action != nil {
			return false, NewValidationError("action", target.OwnerID, "link buttons cannot carry an action")
		}
		b.Action = action.Clone()
	case OwnerOption:
		m, ok := r.SelectMenu(target.MenuID)
		if !ok {
			return false, nil
		}
		opt, ok := m.Option(target.OwnerID)
		if !ok {
			return false, nil
		}
		opt.Action = action.Clone()
	}
	return true, nil
}

// Validate checks the row invariants and every held component.
func (r *ActionRow) Validate() error {
	if len(r.Components) > MaxRowComponents {
		return NewValidationError("components", len(r.Components), fmt.Sprintf("at most %d components allowed", MaxRowComponents))
	}
	if r.HasSelectMenu() && len(r.Components) != 1 {
		return NewValidationError("components", len(r.Components), "a select menu must be alone in its row")
	}
	seen := make(map[string]struct{}, len(r.Components))
	for i, c := range r.Components {
		field := fmt.Sprintf("components[%d]", i)
		if c.Button == nil && c.Select == nil {
			return NewValidationError(field, nil, "component holds no variant")
		}
		if _, dup := seen[c.ID()]; dup {
			return NewValidationError(field+".id", c.ID(), "duplicate component id")
		}
		seen[c.ID()] = struct{}{}

		var err error
		if c.Button != nil {
			err = c.Button.Validate()
		} else {
			err = c.Select.Validate()
		}
		if err != nil {
			return prefixField(field, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the row.
func (r *ActionRow) Clone() *ActionRow {
	if r == nil {
		return nil
	}
	out := &ActionRow{}
	if r.Components != nil {
		out.Components = make([]RowComponent, len(r.Components))
		for i, c := range r.Components {
			out.Components[i] = c.Clone()
		}
	}
	return out
}
