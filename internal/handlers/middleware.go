package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

const ReasonUnauthenticated services.Reason = "UNAUTHENTICATED"

// ActorFrom reads the caller stored by Authenticate.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	id := c.GetString(ContextUserID)
	if id == "" {
		return models.Actor{}, false
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(models.UserRole)
	return models.Actor{ID: id, Role: r}, true
}

// Authenticate resolves the bearer token into an actor. Requests without a
// valid token stop here with 401.
func (h *BaseHandler) Authenticate(parser auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var actor models.Actor
			actor, err = parser.ParseToken(token)
			if err == nil {
				c.Set(ContextUserID, actor.ID)
				c.Set(ContextUserRole, actor.Role)
				c.Next()
				return
			}
		}
		h.RespondWithError(c, http.StatusUnauthorized, ReasonUnauthenticated, err)
	}
}

// RequireRole lets through only callers holding one of roles.
func (h *BaseHandler) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		h.RespondWithError(c, http.StatusForbidden, services.ReasonForbidden, nil)
	}
}
