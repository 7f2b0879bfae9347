package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OwnerKind says which kind of component owns a bound action.
type OwnerKind string

const (
	OwnerButton OwnerKind = "button"
	OwnerOption OwnerKind = "option"
)

// ActionTarget addresses the owner of a BotAction inside a container.
// BlockID selects the action row (or section, for accessory buttons); MenuID
// is required for options.
type ActionTarget struct {
	OwnerKind OwnerKind `json:"ownerKind"`
	OwnerID   string    `json:"ownerId"`
	BlockID   string    `json:"blockId,omitempty"`
	MenuID    string    `json:"menuId,omitempty"`
}

// Validate checks that the target is fully addressed.
func (t ActionTarget) Validate() error {
	switch t.OwnerKind {
	case OwnerButton:
	case OwnerOption:
		if t.MenuID == "" {
			return NewValidationError("menuId", t.MenuID, "option targets require a menu id")
		}
	default:
		return NewValidationError("ownerKind", t.OwnerKind, "owner kind must be button or option")
	}
	if t.OwnerID == "" {
		return NewValidationError("ownerId", t.OwnerID, "owner id is required")
	}
	return nil
}

// marshalTagged encodes v as a JSON object and prepends a tag key.
func marshalTagged(key, tag string, v any) ([]byte, error) {
	return marshalWithHead(map[string]string{key: tag}, []string{key}, v)
}

// marshalWithHead writes the head keys (in order) followed by the fields of v.
func marshalWithHead(head map[string]string, order []string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("tagged value must encode to an object, got %s", body)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(head[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	if rest := bytes.TrimSpace(body[1 : len(body)-1]); len(rest) > 0 {
		buf.WriteByte(',')
		buf.Write(rest)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
