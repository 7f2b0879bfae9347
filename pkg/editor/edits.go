package editor

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/small-frappuccino/botdash/pkg/message"
)

// Result reports the outcome of one edit. Applied is false when the addressed
// node does not exist; such edits are no-ops.
type Result struct {
	ID      string `json:"id,omitempty"`
	Applied bool   `json:"applied"`
}

var done = Result{Applied: true}

// Edit is one change addressed into the document tree. Edits are applied by
// Session.Apply; the address travels with the edit.
type Edit interface {
	Op() string
	apply(d *drafts) (Result, error)
}

type SetMode struct {
	Mode message.Mode `json:"mode"`
}

func (SetMode) Op() string { return "setMode" }
func (e SetMode) apply(d *drafts) (Result, error) {
	if !e.Mode.Valid() {
		return Result{}, message.NewValidationError("mode", e.Mode, "mode must be embed or container")
	}
	d.mode = e.Mode
	return done, nil
}

type SetText struct {
	Content string `json:"content"`
}

func (SetText) Op() string { return "setText" }
func (e SetText) apply(d *drafts) (Result, error) {
	d.text = e.Content
	return done, nil
}

type AddEmbedProperty struct {
	Property message.EmbedProperty `json:"property"`
}

func (AddEmbedProperty) Op() string { return "addEmbedProperty" }
func (e AddEmbedProperty) apply(d *drafts) (Result, error) {
	if err := d.embed.AddProperty(e.Property); err != nil {
		return Result{}, err
	}
	return done, nil
}

type RemoveEmbedProperty struct {
	Property message.EmbedProperty `json:"property"`
}

func (RemoveEmbedProperty) Op() string { return "removeEmbedProperty" }
func (e RemoveEmbedProperty) apply(d *drafts) (Result, error) {
	if err := d.embed.RemoveProperty(e.Property); err != nil {
		return Result{}, err
	}
	return done, nil
}

type UpdateEmbed struct {
	Patch message.EmbedPatch `json:"patch"`
}

func (UpdateEmbed) Op() string { return "updateEmbed" }
func (e UpdateEmbed) apply(d *drafts) (Result, error) {
	if err := d.embed.Apply(e.Patch); err != nil {
		return Result{}, err
	}
	return done, nil
}

type AddEmbedField struct{}

func (AddEmbedField) Op() string { return "addEmbedField" }
func (AddEmbedField) apply(d *drafts) (Result, error) {
	return Result{ID: d.embed.AddField(), Applied: true}, nil
}

type UpdateEmbedField struct {
	FieldID string             `json:"fieldId"`
	Patch   message.FieldPatch `json:"patch"`
}

func (UpdateEmbedField) Op() string { return "updateEmbedField" }
func (e UpdateEmbedField) apply(d *drafts) (Result, error) {
	return Result{Applied: d.embed.UpdateField(e.FieldID, e.Patch)}, nil
}

type RemoveEmbedField struct {
	FieldID string `json:"fieldId"`
}

func (RemoveEmbedField) Op() string { return "removeEmbedField" }
func (e RemoveEmbedField) apply(d *drafts) (Result, error) {
	return Result{Applied: d.embed.RemoveField(e.FieldID)}, nil
}

type SetAccentColor struct {
	Color string `json:"color"`
}

func (SetAccentColor) Op() string { return "setAccentColor" }
func (e SetAccentColor) apply(d *drafts) (Result, error) {
	if err := d.container.SetAccentColor(e.Color); err != nil {
		return Result{}, err
	}
	return done, nil
}

type AddBlock struct {
	Type message.BlockType `json:"type"`
}

func (AddBlock) Op() string { return "addBlock" }
func (e AddBlock) apply(d *drafts) (Result, error) {
	id, err := d.container.AddComponent(e.Type)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, Applied: true}, nil
}

type RemoveBlock struct {
	BlockID string `json:"blockId"`
}

func (RemoveBlock) Op() string { return "removeBlock" }
func (e RemoveBlock) apply(d *drafts) (Result, error) {
	return Result{Applied: d.container.RemoveComponent(e.BlockID)}, nil
}

type UpdateBlock struct {
	BlockID string             `json:"blockId"`
	Patch   message.BlockPatch `json:"patch"`
}

func (UpdateBlock) Op() string { return "updateBlock" }
func (e UpdateBlock) apply(d *drafts) (Result, error) {
	ok, err := d.container.UpdateComponent(e.BlockID, e.Patch)
	return Result{Applied: ok}, err
}

type SetAccessory struct {
	BlockID   string             `json:"blockId"`
	Accessory *message.Accessory `json:"accessory"`
}

func (SetAccessory) Op() string { return "setAccessory" }
func (e SetAccessory) apply(d *drafts) (Result, error) {
	ok, err := d.container.SetAccessory(e.BlockID, e.Accessory)
	if err != nil || !ok {
		return Result{Applied: ok}, err
	}
	res := done
	if b, _ := d.container.Block(e.BlockID); b.Section.Accessory != nil && b.Section.Accessory.Button != nil {
		res.ID = b.Section.Accessory.Button.ID
	}
	return res, nil
}

type UpdateAccessoryButton struct {
	BlockID string              `json:"blockId"`
	Patch   message.ButtonPatch `json:"patch"`
}

func (UpdateAccessoryButton) Op() string { return "updateAccessoryButton" }
func (e UpdateAccessoryButton) apply(d *drafts) (Result, error) {
	ok, err := d.container.UpdateAccessoryButton(e.BlockID, e.Patch)
	return Result{Applied: ok}, err
}

type AddMediaItem struct {
	BlockID string            `json:"blockId"`
	Item    message.MediaItem `json:"item"`
}

func (AddMediaItem) Op() string { return "addMediaItem" }
func (e AddMediaItem) apply(d *drafts) (Result, error) {
	ok, err := d.container.AddMediaItem(e.BlockID, e.Item)
	return Result{Applied: ok}, err
}

type RemoveMediaItem struct {
	BlockID string `json:"blockId"`
	Index   int    `json:"index"`
}

func (RemoveMediaItem) Op() string { return "removeMediaItem" }
func (e RemoveMediaItem) apply(d *drafts) (Result, error) {
	return Result{Applied: d.container.RemoveMediaItem(e.BlockID, e.Index)}, nil
}

type AddRowComponent struct {
	BlockID string                `json:"blockId"`
	Kind    message.ComponentKind `json:"kind"`
}

func (AddRowComponent) Op() string { return "addRowComponent" }
func (e AddRowComponent) apply(d *drafts) (Result, error) {
	row, ok := d.container.Row(e.BlockID)
	if !ok {
		return Result{}, nil
	}
	id, err := row.AddComponent(e.Kind)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, Applied: true}, nil
}

type RemoveRowComponent struct {
	BlockID     string `json:"blockId"`
	ComponentID string `json:"componentId"`
}

func (RemoveRowComponent) Op() string { return "removeRowComponent" }
func (e RemoveRowComponent) apply(d *drafts) (Result, error) {
	row, ok := d.container.Row(e.BlockID)
	if !ok {
		return Result{}, nil
	}
	return Result{Applied: row.RemoveComponent(e.ComponentID)}, nil
}

type UpdateRowComponent struct {
	BlockID     string                 `json:"blockId"`
	ComponentID string                 `json:"componentId"`
	Patch       message.ComponentPatch `json:"patch"`
}

func (UpdateRowComponent) Op() string { return "updateRowComponent" }
func (e UpdateRowComponent) apply(d *drafts) (Result, error) {
	row, ok := d.container.Row(e.BlockID)
	if !ok {
		return Result{}, nil
	}
	ok, err := row.UpdateComponent(e.ComponentID, e.Patch)
	return Result{Applied: ok}, err
}

type AddOption struct {
	BlockID string `json:"blockId"`
	MenuID  string `json:"menuId"`
}

func (AddOption) Op() string { return "addOption" }
func (e AddOption) apply(d *drafts) (Result, error) {
	m, ok := menu(d, e.BlockID, e.MenuID)
	if !ok {
		return Result{}, nil
	}
	id, err := m.AddOption()
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, Applied: true}, nil
}

type RemoveOption struct {
	BlockID  string `json:"blockId"`
	MenuID   string `json:"menuId"`
	OptionID string `json:"optionId"`
}

func (RemoveOption) Op() string { return "removeOption" }
func (e RemoveOption) apply(d *drafts) (Result, error) {
	m, ok := menu(d, e.BlockID, e.MenuID)
	if !ok {
		return Result{}, nil
	}
	return Result{Applied: m.RemoveOption(e.OptionID)}, nil
}

type UpdateOption struct {
	BlockID  string              `json:"blockId"`
	MenuID   string              `json:"menuId"`
	OptionID string              `json:"optionId"`
	Patch    message.OptionPatch `json:"patch"`
}

func (UpdateOption) Op() string { return "updateOption" }
func (e UpdateOption) apply(d *drafts) (Result, error) {
	m, ok := menu(d, e.BlockID, e.MenuID)
	if !ok {
		return Result{}, nil
	}
	ok, err := m.UpdateOption(e.OptionID, e.Patch)
	return Result{Applied: ok}, err
}

// SetAction binds (or with a nil Action, unbinds) a bot action. The target's
// owner kind says whether OwnerID names a button or a select option.
type SetAction struct {
	Target message.ActionTarget `json:"target"`
	Action *message.BotAction   `json:"action"`
}

func (SetAction) Op() string { return "setAction" }
func (e SetAction) apply(d *drafts) (Result, error) {
	ok, err := d.container.SetAction(e.Target, e.Action)
	return Result{Applied: ok}, err
}

func menu(d *drafts, blockID, menuID string) (*message.SelectMenu, bool) {
	row, ok := d.container.Row(blockID)
	if !ok {
		return nil, false
	}
	return row.SelectMenu(menuID)
}

var registry = map[string]func() Edit{
	"setMode":               func() Edit { return &SetMode{} },
	"setText":               func() Edit { return &SetText{} },
	"addEmbedProperty":      func() Edit { return &AddEmbedProperty{} },
	"removeEmbedProperty":   func() Edit { return &RemoveEmbedProperty{} },
	"updateEmbed":           func() Edit { return &UpdateEmbed{} },
	"addEmbedField":         func() Edit { return &AddEmbedField{} },
	"updateEmbedField":      func() Edit { return &UpdateEmbedField{} },
	"removeEmbedField":      func() Edit { return &RemoveEmbedField{} },
	"setAccentColor":        func() Edit { return &SetAccentColor{} },
	"addBlock":              func() Edit { return &AddBlock{} },
	"removeBlock":           func() Edit { return &RemoveBlock{} },
	"updateBlock":           func() Edit { return &UpdateBlock{} },
	"setAccessory":          func() Edit { return &SetAccessory{} },
	"updateAccessoryButton": func() Edit { return &UpdateAccessoryButton{} },
	"addMediaItem":          func() Edit { return &AddMediaItem{} },
	"removeMediaItem":       func() Edit { return &RemoveMediaItem{} },
	"addRowComponent":       func() Edit { return &AddRowComponent{} },
	"removeRowComponent":    func() Edit { return &RemoveRowComponent{} },
	"updateRowComponent":    func() Edit { return &UpdateRowComponent{} },
	"addOption":             func() Edit { return &AddOption{} },
	"removeOption":          func() Edit { return &RemoveOption{} },
	"updateOption":          func() Edit { return &UpdateOption{} },
	"setAction":             func() Edit { return &SetAction{} },
}

// Ops lists the edit operation names DecodeEdit accepts.
func Ops() []string {
	out := make([]string, 0, len(registry))
	for op := range registry {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// DecodeEdit parses one edit. The "op" key selects the edit type and the
// remaining keys are its fields, e.g. {"op":"addBlock","type":"separator"}.
func DecodeEdit(data []byte) (Edit, error) {
	var head struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, message.NewValidationError("edit", nil, fmt.Sprintf("malformed edit: %v", err))
	}
	mk, ok := registry[head.Op]
	if !ok {
		return nil, message.NewValidationError("op", head.Op, "unknown edit operation")
	}
	e := mk()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, message.NewValidationError("edit", head.Op, fmt.Sprintf("malformed %s edit: %v", head.Op, err))
	}
	return e, nil
}

// DecodeEdits parses a JSON array of edits.
func DecodeEdits(data []byte) ([]Edit, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, message.NewValidationError("edits", nil, fmt.Sprintf("edits must be a JSON array: %v", err))
	}
	edits := make([]Edit, 0, len(raw))
	for i, r := range raw {
		e, err := DecodeEdit(r)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		edits = append(edits, e)
	}
	return edits, nil
}
