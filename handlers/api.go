package handlers

import (
	"net/http"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Me returns the portal client's signed-in user.
func Me(c *gin.Context) {
	client := middleware.ClientFrom(c)
	if client == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	select {
	case <-client.Manager.Ready():
	default:
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "checking authentication"})
		return
	}
	u := client.Facade.User()
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "notifications": client.Notes.Drain()})
}
