package middleware

import (
	"net/http"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const authorizedUserKey = "authorized_user"

// RequireRoles gates a route on the portal client's session. Denied requests
// are redirected (303) without running the handler; while the initial
// session check is still running the response is 503 with Retry-After.
func RequireRoles(g *auth.Guard, roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := ClientFrom(c)
		if client == nil {
			metrics.GuardDecisions.WithLabelValues(auth.Denied.String()).Inc()
			c.Redirect(http.StatusSeeOther, g.LoginPath())
			c.Abort()
			return
		}
		d := g.Check(client.Manager.Ready(), client.Facade.View(), roles...)
		metrics.GuardDecisions.WithLabelValues(d.State.String()).Inc()
		switch d.State {
		case auth.Authorized:
			c.Set(authorizedUserKey, d.User)
			c.Next()
		case auth.Checking:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "checking authentication"})
		default:
			c.Redirect(http.StatusSeeOther, d.Redirect)
			c.Abort()
		}
	}
}

// AuthorizedUser returns the profile RequireRoles authorized for this
// request. It stays fixed even if the session changes while the handler runs.
func AuthorizedUser(c *gin.Context) *auth.UserProfile {
	v, ok := c.Get(authorizedUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*auth.UserProfile)
	return u
}
