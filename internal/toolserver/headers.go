// Package toolserver implements the common framework shared by every
// domain Tool Server: caller-context header parsing, JSON
// Schema argument validation, role enforcement, PII redaction helpers,
// and the four HTTP handlers (discover/invoke/execute/health) each
// domain server mounts on top of its own tool set.
package toolserver

import (
	"net/http"
	"strings"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// Header names the Gateway sets on every proxied tool invocation,
// carrying the verified caller's identity.
const (
	HeaderUserID      = "X-Caller-User-Id"
	HeaderDisplayName = "X-Caller-Display-Name"
	HeaderRoles       = "X-Caller-Roles"
	HeaderEmail       = "X-Caller-Email"
	HeaderDepartment  = "X-Caller-Department"
	HeaderTokenID     = "X-Caller-Token-Id"
	HeaderRequestID   = "X-Request-Id"
)

// SetCallerHeaders writes caller's identity onto an outbound request
// the Gateway is about to send to a Tool Server.
func SetCallerHeaders(h http.Header, caller models.CallerContext) {
	h.Set(HeaderUserID, caller.UserID)
	h.Set(HeaderDisplayName, caller.DisplayName)
	h.Set(HeaderRoles, caller.Roles.CommaJoined())
	h.Set(HeaderEmail, caller.Email)
	h.Set(HeaderDepartment, caller.Department)
	h.Set(HeaderTokenID, caller.TokenID)
}

// CallerFromHeaders reconstructs the CallerContext a Tool Server
// receives on an invocation, narrowing the role header back through
// the closed vocabulary. Returns an error if the user id is missing —
// the Tool Server surfaces that as INVALID_CONTEXT.
func CallerFromHeaders(h http.Header) (models.CallerContext, error) {
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	if userID == "" {
		return models.CallerContext{}, errMissingCallerContext
	}
	var roles []string
	if raw := h.Get(HeaderRoles); raw != "" {
		roles = strings.Split(raw, ",")
	}
	return models.CallerContext{
		UserID:      userID,
		DisplayName: h.Get(HeaderDisplayName),
		Email:       h.Get(HeaderEmail),
		Roles:       models.ParseRoleSet(roles),
		Department:  h.Get(HeaderDepartment),
		TokenID:     h.Get(HeaderTokenID),
	}, nil
}
