package toolserver

import (
	"encoding/json"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// hiddenPlaceholder is the fixed literal substituted for any
// sensitive field the caller isn't entitled to see unmasked.
const hiddenPlaceholder = "*** (Hidden)"

// CanUnmask reports whether caller holds a role in unmasked — the
// tool's "unmasked" role set — or the executive
// super-role, which implicitly unmasks every read tool's output.
func CanUnmask(caller models.CallerContext, unmasked models.RoleSet) bool {
	return caller.Roles.IsExecutive() || caller.Roles.Intersects(unmasked)
}

// MaskedNumber renders as a bare JSON number when unmasked, or the
// fixed placeholder string when the caller lacks an unmasking role —
// used for fields like salary.
type MaskedNumber struct {
	Value  float64
	Hidden bool
}

// Number builds a MaskedNumber, hiding it unless caller can unmask.
func Number(value float64, caller models.CallerContext, unmasked models.RoleSet) MaskedNumber {
	return MaskedNumber{Value: value, Hidden: !CanUnmask(caller, unmasked)}
}

// MarshalJSON implements json.Marshaler.
func (m MaskedNumber) MarshalJSON() ([]byte, error) {
	if m.Hidden {
		return json.Marshal(hiddenPlaceholder)
	}
	return json.Marshal(m.Value)
}

// MaskedString renders as the bare string when unmasked, or the fixed
// placeholder otherwise — used for government ids and other sensitive
// text fields.
type MaskedString struct {
	Value  string
	Hidden bool
}

// String builds a MaskedString, hiding it unless caller can unmask.
func String(value string, caller models.CallerContext, unmasked models.RoleSet) MaskedString {
	return MaskedString{Value: value, Hidden: !CanUnmask(caller, unmasked)}
}

// MarshalJSON implements json.Marshaler.
func (m MaskedString) MarshalJSON() ([]byte, error) {
	if m.Hidden {
		return json.Marshal(hiddenPlaceholder)
	}
	return json.Marshal(m.Value)
}
