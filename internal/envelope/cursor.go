package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the opaque, per-tool encoding of the last-returned row's
// ordering key(s). The Gateway never interprets a cursor; only the
// Tool Server that issued it decodes the fields. Encoding is always
// base64-of-JSON of a small object so it round-trips byte-for-byte
// through clients that treat it as an opaque string.
type Cursor struct {
	raw map[string]any
}

// NewCursor builds a cursor from a set of named ordering-key fields.
// Callers should always include a unique tie-breaker field (e.g. "id")
// to keep the ordering total across duplicate non-unique keys.
func NewCursor(fields map[string]any) Cursor {
	return Cursor{raw: fields}
}

// Encode renders the cursor as the opaque wire string.
func (c Cursor) Encode() (string, error) {
	payload, err := json.Marshal(c.raw)
	if err != nil {
		return "", fmt.Errorf("cursor: marshal: %w", err)
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses an opaque cursor string back into its fields.
// Returns an error if the string is not valid base64-of-JSON; callers
// should translate that into an INVALID_CURSOR error envelope or, at
// the tool's discretion, an empty success page.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, fmt.Errorf("cursor: empty")
	}
	payload, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Cursor{}, fmt.Errorf("cursor: invalid json: %w", err)
	}
	return Cursor{raw: raw}, nil
}

// String returns the named field as a string, or ok=false if absent
// or not a string.
func (c Cursor) String(field string) (string, bool) {
	v, ok := c.raw[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the named field as a float64 (JSON numbers decode as
// float64), or ok=false if absent.
func (c Cursor) Float(field string) (float64, bool) {
	v, ok := c.raw[field]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Fields returns the raw decoded field map for tools that need to walk
// an arbitrary multi-column keyset.
func (c Cursor) Fields() map[string]any {
	return c.raw
}

// Page holds the result of a keyset-paginated fetch before it's folded
// into a Pagination/Success envelope: the caller fetches limit+1 rows,
// passes them here, and Page trims to limit and reports hasMore.
type Page[T any] struct {
	Items      []T
	HasMore    bool
	NextCursor string
}

// BuildPage trims a limit+1-sized fetch down to limit items, setting
// HasMore when the extra row was present, and encodes NextCursor from
// cursorOf applied to the last returned item. limit must be >0.
func BuildPage[T any](fetched []T, limit int, cursorOf func(T) map[string]any) (Page[T], error) {
	hasMore := len(fetched) > limit
	items := fetched
	if hasMore {
		items = fetched[:limit]
	}
	page := Page[T]{Items: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		cur := NewCursor(cursorOf(items[len(items)-1]))
		encoded, err := cur.Encode()
		if err != nil {
			return Page[T]{}, err
		}
		page.NextCursor = encoded
	}
	return page, nil
}

// ClampLimit enforces the pagination.maxLimit contract: a requested
// limit <=0 becomes the default, and anything >= maxLimit is clamped
// down to maxLimit (never rejected).
func ClampLimit(requested, def, maxLimit int) int {
	if requested <= 0 {
		return def
	}
	if requested >= maxLimit {
		return maxLimit
	}
	return requested
}
