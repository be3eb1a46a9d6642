package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/forms"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/service"
	"github.com/gin-gonic/gin"
)

type uploadRequest struct {
	CourseCode  string `json:"courseCode"`
	CourseTitle string `json:"courseTitle"`
	Year        string `json:"year"`
	Semester    string `json:"semester"`
	Level       string `json:"level"`
	FileName    string `json:"fileName"`
}

// RegisterQuestionRoutes mounts the catalog API on g. Reads are public;
// writes run behind protect, which must set "claims" on the context.
func RegisterQuestionRoutes(g *gin.RouterGroup, svc service.Service, protect ...gin.HandlerFunc) {
	g.GET("/past-questions", func(c *gin.Context) {
		var f questions.Filter
		if err := c.ShouldBindQuery(&f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		list, err := svc.Browse(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list past questions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list, "count": len(list)})
	})

	g.GET("/past-questions/:id", func(c *gin.Context) {
		q, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	})

	write := g.Group("", protect...)

	write.POST("/past-questions", func(c *gin.Context) {
		sub, role := subject(c)
		if sub == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if role != "teacher" {
			c.JSON(http.StatusForbidden, gin.H{"error": "only teachers can upload past questions"})
			return
		}
		var req uploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		form := forms.Upload{
			CourseCode:  req.CourseCode,
			CourseTitle: req.CourseTitle,
			Year:        req.Year,
			Semester:    req.Semester,
			Level:       req.Level,
			FileName:    req.FileName,
		}
		form.Normalize()
		if err := form.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err})
			return
		}
		q, err := svc.Upload(c.Request.Context(), service.UploadInput{
			CourseCode: form.CourseCode,
			Title:      form.CourseTitle,
			Year:       form.YearInt(),
			Semester:   form.Semester,
			Level:      form.Level,
			Format:     form.Format(),
			UploadedBy: sub,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}
		c.JSON(http.StatusCreated, q)
	})

	write.POST("/past-questions/:id/download", func(c *gin.Context) {
		q, err := svc.Download(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": q.ID, "title": q.Title, "downloads": q.Downloads})
	})
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
}

// subject reads the user id and role from verified access token claims.
func subject(c *gin.Context) (string, string) {
	v, ok := c.Get("claims")
	if !ok {
		return "", ""
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		return "", ""
	}
	sub, _ := claims["sub"].(string)
	var role string
	if md, ok := claims["user_metadata"].(map[string]interface{}); ok {
		role, _ = md["role"].(string)
	}
	return sub, strings.ToLower(role)
}
