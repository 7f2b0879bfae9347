package message

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Id prefixes for editor-owned nodes.
const (
	PrefixButton = "btn"
	PrefixSelect = "sel"
	PrefixOption = "opt"
	PrefixField  = "fld"
	PrefixBlock  = "blk"
)

// NewID generates a new ULID with the specified prefix, e.g. "btn_01g0ez1xtm37c5x11sqtdnctm1".
// ULIDs are monotonic within the process, so ids are unique within any row, menu or container.
func NewID(prefix string) string {
	cleanPrefix := strings.TrimSpace(strings.ToLower(prefix))
	if cleanPrefix == "" {
		panic("message: id prefix cannot be empty")
	}
	return fmt.Sprintf("%s_%s", cleanPrefix, strings.ToLower(ulid.Make().String()))
}
