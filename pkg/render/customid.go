package render

import (
	"strings"

	"github.com/small-frappuccino/botdash/pkg/message"
)

const customIDPrefix = "bd"

// ButtonCustomID is the Discord custom_id of an action button.
func ButtonCustomID(buttonID string) string {
	return customIDPrefix + ":b:" + buttonID
}

// SelectCustomID is the Discord custom_id of a select menu. The chosen option
// is recovered from the interaction values.
func SelectCustomID(menuID string) string {
	return customIDPrefix + ":s:" + menuID
}

// ParseCustomID decodes a custom_id produced by ButtonCustomID or SelectCustomID.
func ParseCustomID(customID string) (message.ComponentKind, string, bool) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[2] == "" {
		return "", "", false
	}
	switch parts[1] {
	case "b":
		return message.KindButton, parts[2], true
	case "s":
		return message.KindSelect, parts[2], true
	}
	return "", "", false
}
