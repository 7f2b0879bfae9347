package message

import "strings"

// ActionType selects what a bound BotAction does when its owner is activated.
type ActionType string

const (
	ActionReply      ActionType = "REPLY"
	ActionAssignRole ActionType = "ASSIGN_ROLE"
	ActionSendDM     ActionType = "SEND_DM"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionReply, ActionAssignRole, ActionSendDM:
		return true
	}
	return false
}

// ActionParameters is the variant bag of a BotAction. Only the fields that
// belong to the action's type may be set:
//   - REPLY: Message
//   - ASSIGN_ROLE: RoleID
//   - SEND_DM: DMMessage
type ActionParameters struct {
	Message   *Document `json:"message,omitempty"`
	RoleID    string    `json:"roleId,omitempty"`
	DMMessage *Document `json:"dmMessage,omitempty"`
}

// IsZero reports whether no parameter is set.
func (p ActionParameters) IsZero() bool {
	return p.Message == nil && p.RoleID == "" && p.DMMessage == nil
}

// BotAction is the behaviour bound to a button or select option.
type BotAction struct {
	Name       string           `json:"name"`
	Type       ActionType       `json:"type"`
	Parameters ActionParameters `json:"parameters"`
}

// SetType switches the action type. Parameters never carry over between types.
func (a *BotAction) SetType(t ActionType) {
	a.Type = t
	a.Parameters = ActionParameters{}
}

// Validate checks the fields required before an action can be saved.
//
// Parameter contents stay permissive (a REPLY may hold an empty message), but
// parameters that belong to a different type are rejected.
func (a *BotAction) Validate() error {
	if a == nil {
		return NewValidationError("action", nil, "action is nil")
	}
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", a.Name, "name is required")
	}
	if a.Type == "" {
		return NewValidationError("type", a.Type, "type is required")
	}
	if !a.Type.Valid() {
		return NewValidationError("type", a.Type, "unknown action type")
	}

	p := a.Parameters
	switch a.Type {
	case ActionReply:
		if p.RoleID != "" || p.DMMessage != nil {
			return NewValidationError("parameters", p, "REPLY accepts only parameters.message")
		}
		if p.Message != nil {
			if err := p.Message.Validate(); err != nil {
				return prefixField("parameters.message", err)
			}
		}
	case ActionAssignRole:
		if p.Message != nil || p.DMMessage != nil {
			return NewValidationError("parameters", p, "ASSIGN_ROLE accepts only parameters.roleId")
		}
	case ActionSendDM:
		if p.Message != nil || p.RoleID != "" {
			return NewValidationError("parameters", p, "SEND_DM accepts only parameters.dmMessage")
		}
		if p.DMMessage != nil {
			if err := p.DMMessage.Validate(); err != nil {
				return prefixField("parameters.dmMessage", err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the action.
func (a *BotAction) Clone() *BotAction {
	if a == nil {
		return nil
	}
	out := *a
	if a.Parameters.Message != nil {
		doc := a.Parameters.Message.Clone()
		out.Parameters.Message = &doc
	}
	if a.Parameters.DMMessage != nil {
		doc := a.Parameters.DMMessage.Clone()
		out.Parameters.DMMessage = &doc
	}
	return &out
}
