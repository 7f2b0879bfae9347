package message

// Mode selects which layout a document renders.
type Mode string

const (
	ModeEmbed     Mode = "embed"
	ModeContainer Mode = "container"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeEmbed || m == ModeContainer
}

// Document is a complete bot message: optional text plus exactly one layout
// matching Mode.
type Document struct {
	Mode        Mode       `json:"mode"`
	TextContent string     `json:"textContent"`
	Embed       *Embed     `json:"embed,omitempty"`
	Container   *Container `json:"container,omitempty"`
}

// NewDocument returns an empty document whose layout matches mode.
func NewDocument(mode Mode) Document {
	doc := Document{Mode: mode}
	switch mode {
	case ModeContainer:
		doc.Container = NewContainer()
	default:
		doc.Mode = ModeEmbed
		doc.Embed = NewEmbed()
	}
	return doc
}

// Validate checks that exactly the layout matching Mode is present and valid.
func (d *Document) Validate() error {
	if d == nil {
		return NewValidationError("document", nil, "document is nil")
	}
	switch d.Mode {
	case ModeEmbed:
		if d.Embed == nil {
			return NewValidationError("embed", nil, "embed mode requires an embed")
		}
		if d.Container != nil {
			return NewValidationError("container", nil, "embed mode must not carry a container")
		}
		return prefixField("embed", d.Embed.Validate())
	case ModeContainer:
		if d.Container == nil {
			return NewValidationError("container", nil, "container mode requires a container")
		}
		if d.Embed != nil {
			return NewValidationError("embed", nil, "container mode must not carry an embed")
		}
		return prefixField("container", d.Container.Validate())
	}
	return NewValidationError("mode", d.Mode, "mode must be embed or container")
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return Document{
		Mode:        d.Mode,
		TextContent: d.TextContent,
		Embed:       d.Embed.Clone(),
		Container:   d.Container.Clone(),
	}
}
