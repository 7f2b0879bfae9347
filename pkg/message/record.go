package message

import (
	"encoding/json"
	"fmt"
)

// RecordBody is the response payload of a persisted record.
type RecordBody struct {
	Content   string     `json:"content,omitempty"`
	Embed     *Embed     `json:"embed,omitempty"`
	Container *Container `json:"container,omitempty"`
}

// Record is the persisted form of a Document, as stored per guild and
// response key and as consumed by the bot runtime.
type Record struct {
	ResponseType Mode       `json:"responseType"`
	Response     RecordBody `json:"response"`
}

// RecordFromDocument converts doc into its persisted form. Only the layout
// matching doc.Mode is kept.
func RecordFromDocument(doc Document) Record {
	rec := Record{
		ResponseType: doc.Mode,
		Response:     RecordBody{Content: doc.TextContent},
	}
	switch doc.Mode {
	case ModeEmbed:
		rec.Response.Embed = doc.Embed.Clone()
	case ModeContainer:
		rec.Response.Container = doc.Container.Clone()
	}
	return rec
}

// Document converts the record back into an editable document. A missing
// layout for the record's type is replaced by its empty default.
func (r Record) Document() (Document, error) {
	if !r.ResponseType.Valid() {
		return Document{}, NewValidationError("responseType", r.ResponseType, "responseType must be embed or container")
	}
	doc := Document{Mode: r.ResponseType, TextContent: r.Response.Content}
	switch r.ResponseType {
	case ModeEmbed:
		doc.Embed = r.Response.Embed.Clone()
		if doc.Embed == nil {
			doc.Embed = NewEmbed()
		}
		if doc.Embed.Color == "" {
			doc.Embed.Color = DefaultEmbedColor
		}
	case ModeContainer:
		doc.Container = r.Response.Container.Clone()
		if doc.Container == nil {
			doc.Container = NewContainer()
		}
		if doc.Container.Components == nil {
			doc.Container.Components = []Block{}
		}
	}
	return doc, nil
}

// DecodeRecord parses and validates a persisted record.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	doc, err := rec.Document()
	if err != nil {
		return Record{}, err
	}
	if err := doc.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	return Record{
		ResponseType: r.ResponseType,
		Response: RecordBody{
			Content:   r.Response.Content,
			Embed:     r.Response.Embed.Clone(),
			Container: r.Response.Container.Clone(),
		},
	}
}
