// Package actions resolves component interactions to their bound bot
// actions and executes them.
package actions

import (
	"errors"
	"fmt"

	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/render"
)

var (
	// ErrUnknownComponent means the custom id does not belong to the document.
	ErrUnknownComponent = errors.New("actions: component not found")
	// ErrNoAction means the component exists but carries no action.
	ErrNoAction = errors.New("actions: component has no action")
)

// Resolution is the action bound to an interacted component.
type Resolution struct {
	Kind    message.ComponentKind
	OwnerID string
	Action  message.BotAction
}

// Resolve finds the action behind customID. For select menus the first
// selected value picks the option. Nested documents carried by actions are
// searched as well, so replies may contain further interactive components.
func Resolve(doc message.Document, customID string, values []string) (Resolution, error) {
	kind, id, ok := render.ParseCustomID(customID)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: custom_id=%s", ErrUnknownComponent, customID)
	}
	switch kind {
	case message.KindButton:
		b := findButton(&doc, id)
		if b == nil {
			return Resolution{}, fmt.Errorf("%w: button=%s", ErrUnknownComponent, id)
		}
		if b.Action == nil {
			return Resolution{}, fmt.Errorf("%w: button=%s", ErrNoAction, id)
		}
		return Resolution{Kind: kind, OwnerID: b.ID, Action: *b.Action.Clone()}, nil
	default:
		menu := findMenu(&doc, id)
		if menu == nil {
			return Resolution{}, fmt.Errorf("%w: menu=%s", ErrUnknownComponent, id)
		}
		if len(values) == 0 {
			return Resolution{}, fmt.Errorf("%w: menu=%s has no selected value", ErrNoAction, id)
		}
		opt, ok := menu.OptionByValue(values[0])
		if !ok {
			return Resolution{}, fmt.Errorf("%w: menu=%s value=%s", ErrUnknownComponent, id, values[0])
		}
		if opt.Action == nil {
			return Resolution{}, fmt.Errorf("%w: option=%s", ErrNoAction, opt.ID)
		}
		return Resolution{Kind: kind, OwnerID: opt.ID, Action: *opt.Action.Clone()}, nil
	}
}

// walk visits every button and select menu reachable from doc, including
// those inside documents nested in actions. It stops when visit returns true.
func walk(doc *message.Document, visitButton func(*message.Button) bool, visitMenu func(*message.SelectMenu) bool) bool {
	if doc == nil || doc.Container == nil {
		return false
	}
	nested := func(a *message.BotAction) bool {
		if a == nil {
			return false
		}
		return walk(a.Parameters.Message, visitButton, visitMenu) || walk(a.Parameters.DMMessage, visitButton, visitMenu)
	}
	for i := range doc.Container.Components {
		b := &doc.Container.Components[i]
		switch {
		case b.Row != nil:
			for j := range b.Row.Components {
				c := &b.Row.Components[j]
				if c.Button != nil && (visitButton(c.Button) || nested(c.Button.Action)) {
					return true
				}
				if c.Select != nil {
					if visitMenu(c.Select) {
						return true
					}
					for k := range c.Select.Options {
						if nested(c.Select.Options[k].Action) {
							return true
						}
					}
				}
			}
		case b.Section != nil && b.Section.Accessory != nil && b.Section.Accessory.Button != nil:
			btn := b.Section.Accessory.Button
			if visitButton(btn) || nested(btn.Action) {
				return true
			}
		}
	}
	return false
}

func findButton(doc *message.Document, id string) *message.Button {
	var found *message.Button
	walk(doc, func(b *message.Button) bool {
		if b.ID == id {
			found = b
			return true
		}
		return false
	}, func(*message.SelectMenu) bool { return false })
	return found
}

func findMenu(doc *message.Document, id string) *message.SelectMenu {
	var found *message.SelectMenu
	walk(doc, func(*message.Button) bool { return false }, func(m *message.SelectMenu) bool {
		if m.ID == id {
			found = m
			return true
		}
		return false
	})
	return found
}
