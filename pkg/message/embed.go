package message

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DefaultEmbedColor matches the Discord dark theme background.
const DefaultEmbedColor = "#2B2D31"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// EmbedProperty names one of the optional embed properties.
type EmbedProperty string

const (
	PropAuthor      EmbedProperty = "author"
	PropTitle       EmbedProperty = "title"
	PropDescription EmbedProperty = "description"
	PropFields      EmbedProperty = "fields"
	PropFooter      EmbedProperty = "footer"
	PropImage       EmbedProperty = "image"
	PropThumbnail   EmbedProperty = "thumbnail"
)

// EmbedProperties lists the optional properties in display order.
var EmbedProperties = []EmbedProperty{PropAuthor, PropTitle, PropDescription, PropFields, PropFooter, PropImage, PropThumbnail}

type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedMedia struct {
	URL string `json:"url"`
}

type EmbedField struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is the simple rich-message layout. A nil pointer (or nil Fields)
// means the property was never added; an empty value means it was added but
// not filled in. Color is always present.
type Embed struct {
	Author      *EmbedAuthor `json:"author,omitempty"`
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitzero"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Color       string       `json:"color"`
}

// NewEmbed returns an embed holding only the default color.
func NewEmbed() *Embed {
	return &Embed{Color: DefaultEmbedColor}
}

// Has reports whether the property has been added.
func (e *Embed) Has(p EmbedProperty) bool {
	switch p {
	case PropAuthor:
		return e.Author != nil
	case PropTitle:
		return e.Title != nil
	case PropDescription:
		return e.Description != nil
	case PropFields:
		return e.Fields != nil
	case PropFooter:
		return e.Footer != nil
	case PropImage:
		return e.Image != nil
	case PropThumbnail:
		return e.Thumbnail != nil
	}
	return false
}

// AvailableProperties returns the properties that can still be added.
func (e *Embed) AvailableProperties() []EmbedProperty {
	out := make([]EmbedProperty, 0, len(EmbedProperties))
	for _, p := range EmbedProperties {
		if !e.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// AddProperty adds p with an empty value. Adding a present property is a no-op.
func (e *Embed) AddProperty(p EmbedProperty) error {
	if !slices.Contains(EmbedProperties, p) {
		return NewValidationError("property", p, "unknown embed property")
	}
	if e.Has(p) {
		return nil
	}
	empty := ""
	switch p {
	case PropAuthor:
		e.Author = &EmbedAuthor{}
	case PropTitle:
		e.Title = &empty
	case PropDescription:
		e.Description = &empty
	case PropFields:
		e.Fields = []EmbedField{}
	case PropFooter:
		e.Footer = &EmbedFooter{}
	case PropImage:
		e.Image = &EmbedMedia{}
	case PropThumbnail:
		e.Thumbnail = &EmbedMedia{}
	}
	return nil
}

// RemoveProperty removes p. Removing an absent property is a no-op.
func (e *Embed) RemoveProperty(p EmbedProperty) error {
	switch p {
	case PropAuthor:
		e.Author = nil
	case PropTitle:
		e.Title = nil
	case PropDescription:
		e.Description = nil
	case PropFields:
		e.Fields = nil
	case PropFooter:
		e.Footer = nil
	case PropImage:
		e.Image = nil
	case PropThumbnail:
		e.Thumbnail = nil
	default:
		return NewValidationError("property", p, "unknown embed property")
	}
	return nil
}

// EmbedPatch sets scalar embed values. Setting a value of an absent property
// adds that property.
type EmbedPatch struct {
	AuthorName    *string `json:"authorName,omitempty"`
	AuthorIconURL *string `json:"authorIconUrl,omitempty"`
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	FooterText    *string `json:"footerText,omitempty"`
	FooterIconURL *string `json:"footerIconUrl,omitempty"`
	ImageURL      *string `json:"imageUrl,omitempty"`
	ThumbnailURL  *string `json:"thumbnailUrl,omitempty"`
	Color         *string `json:"color,omitempty"`
}

// Apply merges the patch into e.
func (e *Embed) Apply(p EmbedPatch) error {
	if p.Color != nil {
		if err := e.SetColor(*p.Color); err != nil {
			return err
		}
	}
	if p.AuthorName != nil || p.AuthorIconURL != nil {
		_ = e.AddProperty(PropAuthor)
		setIf(&e.Author.Name, p.AuthorName)
		setIf(&e.Author.IconURL, p.AuthorIconURL)
	}
	if p.Title != nil {
		v := *p.Title
		e.Title = &v
	}
	if p.Description != nil {
		v := *p.Description
		e.Description = &v
	}
	if p.FooterText != nil || p.FooterIconURL != nil {
		_ = e.AddProperty(PropFooter)
		setIf(&e.Footer.Text, p.FooterText)
		setIf(&e.Footer.IconURL, p.FooterIconURL)
	}
	if p.ImageURL != nil {
		e.Image = &EmbedMedia{URL: strings.TrimSpace(*p.ImageURL)}
	}
	if p.ThumbnailURL != nil {
		e.Thumbnail = &EmbedMedia{URL: strings.TrimSpace(*p.ThumbnailURL)}
	}
	return nil
}

// SetColor sets the embed color. The value must be #RRGGBB.
func (e *Embed) SetColor(c string) error {
	c = strings.TrimSpace(c)
	if !hexColor.MatchString(c) {
		return NewValidationError("color", c, "color must be a #RRGGBB hex string")
	}
	e.Color = strings.ToUpper(c)
	return nil
}

// AddField appends an empty field and returns its id. The fields property is
// added when absent.
func (e *Embed) AddField() string {
	if e.Fields == nil {
		e.Fields = []EmbedField{}
	}
	id := NewID(PrefixField)
	e.Fields = append(e.Fields, EmbedField{ID: id})
	return id
}

// FieldPatch is a partial field update.
type FieldPatch struct {
	Name   *string `json:"name,omitempty"`
	Value  *string `json:"value,omitempty"`
	Inline *bool   `json:"inline,omitempty"`
}

// UpdateField merges p into the field with the given id.
func (e *Embed) UpdateField(id string, p FieldPatch) bool {
	for i := range e.Fields {
		if e.Fields[i].ID != id {
			continue
		}
		setIf(&e.Fields[i].Name, p.Name)
		setIf(&e.Fields[i].Value, p.Value)
		if p.Inline != nil {
			e.Fields[i].Inline = *p.Inline
		}
		return true
	}
	return false
}

// RemoveField removes the field with the given id.
func (e *Embed) RemoveField(id string) bool {
	for i := range e.Fields {
		if e.Fields[i].ID == id {
			e.Fields = append(e.Fields[:i], e.Fields[i+1:]...)
			return true
		}
	}
	return false
}

// Serialize returns the embed exactly as edited.
func (e *Embed) Serialize() Embed {
	return *e.Clone()
}

// Validate only checks the color; embeds may otherwise be saved empty.
func (e *Embed) Validate() error {
	if !hexColor.MatchString(e.Color) {
		return NewValidationError("color", e.Color, "color must be a #RRGGBB hex string")
	}
	for i, f := range e.Fields {
		if f.ID == "" {
			continue
		}
		for j := i + 1; j < len(e.Fields); j++ {
			if e.Fields[j].ID == f.ID {
				return NewValidationError(fmt.Sprintf("fields[%d].id", j), f.ID, "duplicate field id")
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the embed.
func (e *Embed) Clone() *Embed {
	if e == nil {
		return nil
	}
	out := *e
	if e.Author != nil {
		a := *e.Author
		out.Author = &a
	}
	if e.Title != nil {
		t := *e.Title
		out.Title = &t
	}
	if e.Description != nil {
		d := *e.Description
		out.Description = &d
	}
	if e.Fields != nil {
		out.Fields = slices.Clone(e.Fields)
	}
	if e.Footer != nil {
		f := *e.Footer
		out.Footer = &f
	}
	if e.Image != nil {
		m := *e.Image
		out.Image = &m
	}
	if e.Thumbnail != nil {
		m := *e.Thumbnail
		out.Thumbnail = &m
	}
	return &out
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
