package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the authenticated user id set by the upstream auth proxy
	UserIDHeader = "X-User-ID"

	// ActorIDKey is the key used to store the acting user id in the context
	ActorIDKey = "actor_id"
)

// Actor rejects requests without a valid X-User-ID and stores the parsed id for handlers
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil || actorID == uuid.Nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid "+UserIDHeader+" header")
			return
		}

		c.Set(ActorIDKey, actorID)
		c.Next()
	}
}

// GetActorID returns the acting user id, or uuid.Nil outside the Actor middleware
func GetActorID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get(ActorIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
