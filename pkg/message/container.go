package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockType tags the variant held by a container Block.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockActionRow    BlockType = "actionRow"
	BlockSection      BlockType = "section"
	BlockMediaGallery BlockType = "mediaGallery"
	BlockFile         BlockType = "file"
	BlockSeparator    BlockType = "separator"
)

// MaxGalleryItems is the Discord limit of items in a media gallery.
const MaxGalleryItems = 10

type SeparatorSpacing string

const (
	SpacingNormal SeparatorSpacing = "normal"
	SpacingLarge  SeparatorSpacing = "large"
)

type TextBlock struct {
	Content string `json:"content"`
}

// SectionBlock is text with an optional accessory. A nil Accessory encodes as null.
type SectionBlock struct {
	Content   string     `json:"content"`
	Accessory *Accessory `json:"accessory"`
}

type MediaItem struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Spoiler     bool   `json:"spoiler"`
}

type MediaGalleryBlock struct {
	Items []MediaItem `json:"items"`
}

type FileBlock struct {
	URL     string `json:"url"`
	Spoiler bool   `json:"spoiler"`
}

// SeparatorBlock toggles its divider and spacing independently.
type SeparatorBlock struct {
	Spacing SeparatorSpacing `json:"spacing"`
	Divider bool             `json:"divider"`
}

// Block is one entry of a container. Exactly one variant pointer matching
// Type is set. On the wire the variant fields are flattened next to id and type.
type Block struct {
	ID        string
	Type      BlockType
	Text      *TextBlock
	Row       *ActionRow
	Section   *SectionBlock
	Gallery   *MediaGalleryBlock
	File      *FileBlock
	Separator *SeparatorBlock
}

func (b Block) variant() any {
	switch b.Type {
	case BlockText:
		return b.Text
	case BlockActionRow:
		return b.Row
	case BlockSection:
		return b.Section
	case BlockMediaGallery:
		return b.Gallery
	case BlockFile:
		return b.File
	case BlockSeparator:
		return b.Separator
	}
	return nil
}

func (b Block) hasVariant() bool {
	switch b.Type {
	case BlockText:
		return b.Text != nil
	case BlockActionRow:
		return b.Row != nil
	case BlockSection:
		return b.Section != nil
	case BlockMediaGallery:
		return b.Gallery != nil
	case BlockFile:
		return b.File != nil
	case BlockSeparator:
		return b.Separator != nil
	}
	return false
}

func (b Block) MarshalJSON() ([]byte, error) {
	if !b.hasVariant() {
		return nil, fmt.Errorf("block %q of type %q holds no variant", b.ID, b.Type)
	}
	head := map[string]string{"id": b.ID, "type": string(b.Type)}
	return marshalWithHead(head, []string{"id", "type"}, b.variant())
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var head struct {
		ID   string    `json:"id"`
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	*b = Block{ID: head.ID, Type: head.Type}
	var target any
	switch head.Type {
	case BlockText:
		b.Text = &TextBlock{}
		target = b.Text
	case BlockActionRow:
		b.Row = &ActionRow{}
		target = b.Row
	case BlockSection:
		b.Section = &SectionBlock{}
		target = b.Section
	case BlockMediaGallery:
		b.Gallery = &MediaGalleryBlock{}
		target = b.Gallery
	case BlockFile:
		b.File = &FileBlock{}
		target = b.File
	case BlockSeparator:
		b.Separator = &SeparatorBlock{}
		target = b.Separator
	default:
		return fmt.Errorf("unknown block type %q", head.Type)
	}
	return json.Unmarshal(data, target)
}

// Clone returns a deep copy.
func (b Block) Clone() Block {
	out := Block{ID: b.ID, Type: b.Type, Row: b.Row.Clone()}
	if b.Text != nil {
		t := *b.Text
		out.Text = &t
	}
	if b.Section != nil {
		s := SectionBlock{Content: b.Section.Content, Accessory: b.Section.Accessory.Clone()}
		out.Section = &s
	}
	if b.Gallery != nil {
		g := MediaGalleryBlock{}
		if b.Gallery.Items != nil {
			g.Items = append([]MediaItem{}, b.Gallery.Items...)
		}
		out.Gallery = &g
	}
	if b.File != nil {
		f := *b.File
		out.File = &f
	}
	if b.Separator != nil {
		s := *b.Separator
		out.Separator = &s
	}
	return out
}

// AccessoryType tags the variant of a section accessory.
type AccessoryType string

const (
	AccessoryButton AccessoryType = "button"
	AccessoryImage  AccessoryType = "image"
)

type ImageAccessory struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Accessory is the trailing element of a section: a button or a thumbnail image.
type Accessory struct {
	Type   AccessoryType
	Button *Button
	Image  *ImageAccessory
}

// NewButtonAccessory wraps b as a section accessory.
func NewButtonAccessory(b *Button) *Accessory {
	return &Accessory{Type: AccessoryButton, Button: b}
}

// NewImageAccessory returns an image accessory for url.
func NewImageAccessory(url, description string) *Accessory {
	return &Accessory{Type: AccessoryImage, Image: &ImageAccessory{URL: url, Description: description}}
}

func (a Accessory) MarshalJSON() ([]byte, error) {
	switch {
	case a.Type == AccessoryButton && a.Button != nil:
		return marshalTagged("type", string(AccessoryButton), a.Button)
	case a.Type == AccessoryImage && a.Image != nil:
		return marshalTagged("type", string(AccessoryImage), a.Image)
	}
	return nil, fmt.Errorf("accessory of type %q holds no variant", a.Type)
}

func (a *Accessory) UnmarshalJSON(data []byte) error {
	var head struct {
		Type AccessoryType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	*a = Accessory{Type: head.Type}
	switch head.Type {
	case AccessoryButton:
		a.Button = &Button{}
		return json.Unmarshal(data, a.Button)
	case AccessoryImage:
		a.Image = &ImageAccessory{}
		return json.Unmarshal(data, a.Image)
	}
	return fmt.Errorf("unknown accessory type %q", head.Type)
}

// Validate checks the accessory variant.
func (a *Accessory) Validate() error {
	switch a.Type {
	case AccessoryButton:
		if a.Button == nil || a.Image != nil {
			return NewValidationError("accessory", a.Type, "button accessory must hold only a button")
		}
		return prefixField("button", a.Button.Validate())
	case AccessoryImage:
		if a.Image == nil || a.Button != nil {
			return NewValidationError("accessory", a.Type, "image accessory must hold only an image")
		}
		return nil
	}
	return NewValidationError("accessory.type", a.Type, "accessory type must be button or image")
}

// Clone returns a deep copy.
func (a *Accessory) Clone() *Accessory {
	if a == nil {
		return nil
	}
	out := &Accessory{Type: a.Type, Button: a.Button.Clone()}
	if a.Image != nil {
		img := *a.Image
		out.Image = &img
	}
	return out
}

// Container is the block-based V2 message layout. Block order is display order.
type Container struct {
	Components  []Block `json:"components"`
	AccentColor *string `json:"accentColor,omitempty"`
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{Components: []Block{}}
}

func newBlock(t BlockType) (Block, error) {
	b := Block{ID: NewID(PrefixBlock), Type: t}
	switch t {
	case BlockText:
		b.Text = &TextBlock{}
	case BlockActionRow:
		b.Row = NewActionRow()
	case BlockSection:
		b.Section = &SectionBlock{}
	case BlockMediaGallery:
		b.Gallery = &MediaGalleryBlock{Items: []MediaItem{}}
	case BlockFile:
		b.File = &FileBlock{}
	case BlockSeparator:
		b.Separator = &SeparatorBlock{Spacing: SpacingNormal, Divider: true}
	default:
		return Block{}, NewValidationError("type", t, "unknown block type")
	}
	return b, nil
}

// AddComponent appends a block of type t with its defaults and returns its id.
// Containers have no block limit.
func (c *Container) AddComponent(t BlockType) (string, error) {
	b, err := newBlock(t)
	if err != nil {
		return "", err
	}
	c.Components = append(c.Components, b)
	return b.ID, nil
}

// RemoveComponent removes the block with the given id. It is idempotent.
func (c *Container) RemoveComponent(id string) bool {
	idx := c.index(id)
	if idx < 0 {
		return false
	}
	c.Components = append(c.Components[:idx], c.Components[idx+1:]...)
	return true
}

// BlockPatch is a partial block update. Each field applies only to the block
// types noted next to it.
type BlockPatch struct {
	Content *string           `json:"content,omitempty"` // text, section
	URL     *string           `json:"url,omitempty"`     // file
	Spoiler *bool             `json:"spoiler,omitempty"` // file
	Items   *[]MediaItem      `json:"items,omitempty"`   // mediaGallery
	Spacing *SeparatorSpacing `json:"spacing,omitempty"` // separator
	Divider *bool             `json:"divider,omitempty"` // separator
}

func (p BlockPatch) appliesTo(t BlockType) bool {
	text := p.Content != nil
	file := p.URL != nil || p.Spoiler != nil
	gallery := p.Items != nil
	sep := p.Spacing != nil || p.Divider != nil
	switch t {
	case BlockText, BlockSection:
		return !file && !gallery && !sep
	case BlockFile:
		return !text && !gallery && !sep
	case BlockMediaGallery:
		return !text && !file && !sep
	case BlockSeparator:
		return !text && !file && !gallery
	}
	return !text && !file && !gallery && !sep
}

// UpdateComponent merges p into the block with the given id. Fields that do not
// apply to the block's type are rejected. It returns false without error when
// the id is absent.
func (c *Container) UpdateComponent(id string, p BlockPatch) (bool, error) {
	idx := c.index(id)
	if idx < 0 {
		return false, nil
	}
	b := &c.Components[idx]
	if !p.appliesTo(b.Type) {
		return false, NewValidationError("patch", id, fmt.Sprintf("patch does not apply to %s blocks", b.Type))
	}
	if p.Spacing != nil && *p.Spacing != SpacingNormal && *p.Spacing != SpacingLarge {
		return false, NewValidationError("spacing", *p.Spacing, "spacing must be normal or large")
	}
	if p.Items != nil && len(*p.Items) > MaxGalleryItems {
		return false, &CapacityError{Container: "media gallery", Limit: MaxGalleryItems}
	}

	switch b.Type {
	case BlockText:
		setIf(&b.Text.Content, p.Content)
	case BlockSection:
		setIf(&b.Section.Content, p.Content)
	case BlockFile:
		if p.URL != nil {
			b.File.URL = strings.TrimSpace(*p.URL)
		}
		if p.Spoiler != nil {
			b.File.Spoiler = *p.Spoiler
		}
	case BlockMediaGallery:
		if p.Items != nil {
			b.Gallery.Items = append([]MediaItem{}, (*p.Items)...)
		}
	case BlockSeparator:
		if p.Spacing != nil {
			b.Separator.Spacing = *p.Spacing
		}
		if p.Divider != nil {
			b.Separator.Divider = *p.Divider
		}
	}
	return true, nil
}

// AddMediaItem appends an item to a media gallery block.
func (c *Container) AddMediaItem(id string, item MediaItem) (bool, error) {
	b, ok := c.Block(id)
	if !ok {
		return false, nil
	}
	if b.Type != BlockMediaGallery {
		return false, NewValidationError("type", b.Type, "block is not a media gallery")
	}
	if len(b.Gallery.Items) >= MaxGalleryItems {
		return false, &CapacityError{Container: "media gallery", Limit: MaxGalleryItems}
	}
	item.URL = strings.TrimSpace(item.URL)
	b.Gallery.Items = append(b.Gallery.Items, item)
	return true, nil
}

// RemoveMediaItem removes the item at index i of a media gallery block.
func (c *Container) RemoveMediaItem(id string, i int) bool {
	b, ok := c.Block(id)
	if !ok || b.Type != BlockMediaGallery || i < 0 || i >= len(b.Gallery.Items) {
		return false
	}
	b.Gallery.Items = append(b.Gallery.Items[:i], b.Gallery.Items[i+1:]...)
	return true
}

// SetAccessory replaces the accessory of a section block wholesale. A nil
// accessory clears it. Button accessories without an id get a fresh one.
func (c *Container) SetAccessory(id string, a *Accessory) (bool, error) {
	b, ok := c.Block(id)
	if !ok {
		return false, nil
	}
	if b.Type != BlockSection {
		return false, NewValidationError("type", b.Type, "only section blocks carry an accessory")
	}
	if a == nil {
		b.Section.Accessory = nil
		return true, nil
	}
	next := a.Clone()
	if next.Type == AccessoryButton && next.Button != nil && next.Button.ID == "" {
		next.Button.ID = NewID(PrefixButton)
	}
	if err := next.Validate(); err != nil {
		return false, prefixField("accessory", err)
	}
	b.Section.Accessory = next
	return true, nil
}

// UpdateAccessoryButton merges p into the button accessory of a section.
func (c *Container) UpdateAccessoryButton(id string, p ButtonPatch) (bool, error) {
	b, ok := c.Block(id)
	if !ok {
		return false, nil
	}
	if b.Type != BlockSection || b.Section.Accessory == nil || b.Section.Accessory.Button == nil {
		return false, NewValidationError("accessory", id, "section has no button accessory")
	}
	return true, b.Section.Accessory.Button.Apply(p)
}

// SetAccentColor sets the container accent color. An empty string clears it.
func (c *Container) SetAccentColor(color string) error {
	color = strings.TrimSpace(color)
	if color == "" {
		c.AccentColor = nil
		return nil
	}
	if !hexColor.MatchString(color) {
		return NewValidationError("accentColor", color, "color must be a #RRGGBB hex string")
	}
	color = strings.ToUpper(color)
	c.AccentColor = &color
	return nil
}

// Block returns the block with the given id.
func (c *Container) Block(id string) (*Block, bool) {
	idx := c.index(id)
	if idx < 0 {
		return nil, false
	}
	return &c.Components[idx], true
}

// Row returns the action row held by the block with the given id.
func (c *Container) Row(id string) (*ActionRow, bool) {
	b, ok := c.Block(id)
	if !ok || b.Type != BlockActionRow {
		return nil, false
	}
	return b.Row, true
}

func (c *Container) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.Components {
		if c.Components[i].ID == id {
			return i
		}
	}
	return -1
}

// SetAction binds action to the owner addressed by target. target.BlockID
// selects an action row block, or a section whose accessory is the button.
func (c *Container) SetAction(target ActionTarget, action *BotAction) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, err
	}
	b, ok := c.Block(target.BlockID)
	if !ok {
		return false, nil
	}
	switch b.Type {
	case BlockActionRow:
		return b.Row.SetAction(target, action)
	case BlockSection:
		acc := b.Section.Accessory
		if target.OwnerKind != OwnerButton || acc == nil || acc.Button == nil || acc.Button.ID != target.OwnerID {
			return false, nil
		}
		if action != nil {
			if err := action.Validate(); err != nil {
				return false, err
			}
			if acc.Button.Style == StyleLink {
				return false, NewValidationError("action", target.OwnerID, "link buttons cannot carry an action")
			}
		}
		acc.Button.Action = action.Clone()
		return true, nil
	}
	return false, NewValidationError("blockId", target.BlockID, "block cannot own actions")
}

// Validate checks every block.
func (c *Container) Validate() error {
	if c.AccentColor != nil && !hexColor.MatchString(*c.AccentColor) {
		return NewValidationError("accentColor", *c.AccentColor, "color must be a #RRGGBB hex string")
	}
	seen := make(map[string]struct{}, len(c.Components))
	for i, b := range c.Components {
		field := fmt.Sprintf("components[%d]", i)
		if b.ID == "" {
			return NewValidationError(field+".id", b.ID, "id is required")
		}
		if _, dup := seen[b.ID]; dup {
			return NewValidationError(field+".id", b.ID, "duplicate block id")
		}
		seen[b.ID] = struct{}{}
		if !b.hasVariant() {
			return NewValidationError(field+".type", b.Type, "block holds no matching variant")
		}

		switch b.Type {
		case BlockActionRow:
			if err := b.Row.Validate(); err != nil {
				return prefixField(field, err)
			}
		case BlockSection:
			if b.Section.Accessory != nil {
				if err := b.Section.Accessory.Validate(); err != nil {
					return prefixField(field+".accessory", err)
				}
			}
		case BlockMediaGallery:
			if len(b.Gallery.Items) > MaxGalleryItems {
				return NewValidationError(field+".items", len(b.Gallery.Items), fmt.Sprintf("at most %d items allowed", MaxGalleryItems))
			}
		case BlockSeparator:
			if s := b.Separator.Spacing; s != SpacingNormal && s != SpacingLarge {
				return NewValidationError(field+".spacing", s, "spacing must be normal or large")
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the container.
func (c *Container) Clone() *Container {
	if c == nil {
		return nil
	}
	out := &Container{}
	if c.Components != nil {
		out.Components = make([]Block, len(c.Components))
		for i, b := range c.Components {
			out.Components[i] = b.Clone()
		}
	}
	if c.AccentColor != nil {
		v := *c.AccentColor
		out.AccentColor = &v
	}
	return out
}
