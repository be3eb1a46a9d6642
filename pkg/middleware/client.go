package middleware

import (
	"errors"
	"net/http"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/portal"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	portalClientKey = "portal_client"
	portalCookieKey = "portal_cookie"
)

// CookieOptions controls the portal client cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge int
}

// cookieIssuer issues the portal client cookie for one registry.
type cookieIssuer struct {
	reg  *portal.Registry
	opts CookieOptions
}

func (cc cookieIssuer) attach(c *gin.Context, client *portal.Client) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cc.opts.Name, client.ID, cc.opts.MaxAge, "/", "", cc.opts.Secure, true)
	c.Set(portalClientKey, client)
	if u := client.Facade.User(); u != nil {
		c.Set("claims", map[string]interface{}{"sub": u.ID, "email": u.Email})
	}
}

// PortalClient attaches the browser's portal client to the request, issuing
// a client cookie on first visit. A signed-in user's id is exposed as
// claims.sub so per-user rate limiting applies.
func PortalClient(reg *portal.Registry, opts CookieOptions) gin.HandlerFunc {
	if opts.Name == "" {
		opts.Name = "studyhub_client"
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 30 * 24 * 3600
	}
	cc := cookieIssuer{reg: reg, opts: opts}
	return func(c *gin.Context) {
		id, err := c.Cookie(opts.Name)
		if err != nil || uuid.Validate(id) != nil {
			id = portal.NewClientID()
		}

		client, err := reg.Acquire(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, portal.ErrClosed) {
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
			logger.Errorf("acquire portal client: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		// refreshed on every visit so the cookie outlives active use
		cc.attach(c, client)
		c.Set(portalCookieKey, cc)
		c.Next()
	}
}

// RotateClient moves the request's portal client and its session to a fresh
// id and reissues the cookie. Call it when a user signs in, so an id that
// was known before sign-in never carries the session.
func RotateClient(c *gin.Context) (*portal.Client, error) {
	client := ClientFrom(c)
	v, _ := c.Get(portalCookieKey)
	cc, ok := v.(cookieIssuer)
	if client == nil || !ok {
		return nil, errors.New("no portal client on request")
	}
	next, err := cc.reg.Rotate(c.Request.Context(), client.ID)
	if err != nil {
		return nil, err
	}
	cc.attach(c, next)
	return next, nil
}

// ClientFrom returns the portal client attached by PortalClient, or nil.
func ClientFrom(c *gin.Context) *portal.Client {
	v, ok := c.Get(portalClientKey)
	if !ok {
		return nil
	}
	client, _ := v.(*portal.Client)
	return client
}
