package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/forms"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/portal"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/service"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/middleware"
	"github.com/gin-gonic/gin"
)

const (
	dashboardListSize = 5
	uploadHistorySize = 20
)

var welcome = map[auth.Role]string{
	auth.RoleStudent: "Welcome back to StudyHub SE!",
	auth.RoleTeacher: "Welcome back to the teacher portal!",
}

// PageHandler serves the portal's HTML pages. Every route expects
// middleware.PortalClient to have run.
type PageHandler struct {
	guard     *auth.Guard
	questions service.Service
	now       func() time.Time
}

func NewPageHandler(guard *auth.Guard, questions service.Service) *PageHandler {
	return &PageHandler{guard: guard, questions: questions, now: time.Now}
}

// Register mounts the pages on r.
func (h *PageHandler) Register(r gin.IRouter) {
	r.GET("/", h.home)
	r.GET("/past-questions", h.pastQuestions)
	r.POST("/past-questions/:id/download", h.download)
	r.POST("/logout", h.logout)

	for _, role := range []auth.Role{auth.RoleStudent, auth.RoleTeacher} {
		g := r.Group("/" + string(role))
		g.GET("/login", h.loginPage(role))
		g.POST("/login", h.login(role))
		g.GET("/register", h.registerPage(role))
		g.POST("/register", h.register(role))
	}

	r.GET("/student/dashboard", middleware.RequireRoles(h.guard, auth.RoleStudent), h.studentDashboard)
	teacher := r.Group("/teacher", middleware.RequireRoles(h.guard, auth.RoleTeacher))
	teacher.GET("/dashboard", h.teacherDashboard)
	teacher.POST("/uploads", h.upload)
}

// render fills the layout fields and drains pending notifications.
func (h *PageHandler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Path"] = c.Request.URL.Path
	data["Year"] = h.now().Year()
	if client := middleware.ClientFrom(c); client != nil {
		data["User"] = client.Facade.User()
		data["Notes"] = client.Notes.Drain()
	}
	// restricted pages render the user the guard let in
	if u := middleware.AuthorizedUser(c); u != nil {
		data["User"] = u
	}
	c.HTML(status, page, data)
}

func (h *PageHandler) fail(c *gin.Context, status int, message string) {
	h.render(c, status, errorPage, gin.H{"Status": status, "Message": message})
}

func (h *PageHandler) client(c *gin.Context) *portal.Client {
	client := middleware.ClientFrom(c)
	if client == nil {
		logger.Errorf("no portal client on %s %s", c.Request.Method, c.Request.URL.Path)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
	return client
}

func (h *PageHandler) home(c *gin.Context) {
	recent, err := h.questions.Recent(c.Request.Context(), 3)
	if err != nil {
		logger.Warnf("home: recent questions: %v", err)
	}
	h.render(c, http.StatusOK, "home.html", gin.H{"Recent": recent})
}

func (h *PageHandler) loginPage(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.render(c, http.StatusOK, "login.html", gin.H{"Role": role, "Form": forms.Login{}})
	}
}

func (h *PageHandler) login(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := h.client(c)
		if client == nil {
			return
		}
		var f forms.Login
		_ = c.ShouldBind(&f)
		f.Normalize()
		if err := f.Validate(); err != nil {
			h.render(c, http.StatusBadRequest, "login.html", gin.H{"Role": role, "Form": forms.Login{Email: f.Email}, "Error": fieldError(err)})
			return
		}
		if !client.Facade.Login(c.Request.Context(), f.Email, f.Password, role) {
			h.render(c, http.StatusUnauthorized, "login.html", gin.H{"Role": role, "Form": forms.Login{Email: f.Email}})
			return
		}
		client, ok := h.rotate(c)
		if !ok {
			return
		}
		client.Notes.Notify(notify.Success("Login successful", welcome[role]))
		c.Redirect(http.StatusSeeOther, role.DashboardPath())
	}
}

// rotate gives a freshly signed-in browser a new client id. On failure the
// session is dropped and the visitor is asked to sign in again.
func (h *PageHandler) rotate(c *gin.Context) (*portal.Client, bool) {
	client, err := middleware.RotateClient(c)
	if err != nil {
		logger.Errorf("rotate portal client: %v", err)
		h.fail(c, http.StatusInternalServerError, "Your session could not be started. Please log in again.")
		return nil, false
	}
	return client, true
}

func registerPage(role auth.Role) string {
	return string(role) + "_register.html"
}

func (h *PageHandler) registerPage(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := gin.H{"Levels": forms.Levels}
		if role == auth.RoleTeacher {
			data["Form"] = forms.TeacherRegistration{}
		} else {
			data["Form"] = forms.StudentRegistration{Level: forms.DefaultLevel}
		}
		h.render(c, http.StatusOK, registerPage(role), data)
	}
}

// registrationForm is implemented by both registration forms.
type registrationForm interface {
	Validate() error
	Registration() auth.Registration
}

func (h *PageHandler) register(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := h.client(c)
		if client == nil {
			return
		}
		var form registrationForm
		var echo interface{}
		if role == auth.RoleTeacher {
			var f forms.TeacherRegistration
			_ = c.ShouldBind(&f)
			f.Normalize()
			form = f
			f.Password, f.ConfirmPassword = "", ""
			echo = f
		} else {
			var f forms.StudentRegistration
			_ = c.ShouldBind(&f)
			f.Normalize()
			form = f
			f.Password, f.ConfirmPassword = "", ""
			echo = f
		}
		data := gin.H{"Levels": forms.Levels, "Form": echo}

		if err := form.Validate(); err != nil {
			data["Error"] = fieldError(err)
			h.render(c, http.StatusBadRequest, registerPage(role), data)
			return
		}
		if !client.Facade.Register(c.Request.Context(), form.Registration()) {
			h.render(c, http.StatusBadRequest, registerPage(role), data)
			return
		}
		// with email confirmation on there is no session yet
		if client.Facade.IsAuthenticated() {
			if _, ok := h.rotate(c); ok {
				c.Redirect(http.StatusSeeOther, role.DashboardPath())
			}
			return
		}
		c.Redirect(http.StatusSeeOther, role.LoginPath())
	}
}

func (h *PageHandler) logout(c *gin.Context) {
	client := h.client(c)
	if client == nil {
		return
	}
	client.Facade.Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) pastQuestions(c *gin.Context) {
	var f questions.Filter
	_ = c.ShouldBindQuery(&f)
	if f.Tab == "" {
		f.Tab = questions.TabAll
	}
	ctx := c.Request.Context()
	list, err := h.questions.Browse(ctx, f)
	if err != nil {
		logger.Errorf("browse past questions: %v", err)
		h.fail(c, http.StatusInternalServerError, "Past questions are unavailable right now.")
		return
	}
	all, err := h.questions.Browse(ctx, questions.Filter{})
	if err != nil {
		logger.Warnf("browse past questions: year options: %v", err)
	}
	h.render(c, http.StatusOK, "past_questions.html", gin.H{
		"Filter":    f,
		"Questions": list,
		"Tabs":      questions.Tabs,
		"Levels":    forms.Levels,
		"Years":     yearsOf(all),
		"Semesters": forms.Semesters,
	})
}

func (h *PageHandler) download(c *gin.Context) {
	client := h.client(c)
	if client == nil {
		return
	}
	next := localPath(c.PostForm("next"), "/past-questions")
	if !client.Facade.IsAuthenticated() {
		client.Notes.Notify(notify.Failure("Authentication required", "Please login to download past questions"))
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	q, err := h.questions.Download(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, service.ErrNotFound):
		client.Notes.Notify(notify.Failure("Download failed", "This past question is no longer available"))
	case err != nil:
		logger.Errorf("download %s: %v", c.Param("id"), err)
		client.Notes.Notify(notify.Failure("Download failed", "An unexpected error occurred"))
	default:
		client.Notes.Notify(notify.Success("Download started", "Downloading "+q.Title+"..."))
	}
	c.Redirect(http.StatusSeeOther, next)
}

// user returns the profile the guard authorized for a restricted page.
func (h *PageHandler) user(c *gin.Context) *auth.UserProfile {
	u := middleware.AuthorizedUser(c)
	if u == nil {
		logger.Errorf("no authorized user on %s %s", c.Request.Method, c.Request.URL.Path)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
	return u
}

func (h *PageHandler) studentDashboard(c *gin.Context) {
	user := h.user(c)
	if user == nil {
		return
	}
	ctx := c.Request.Context()
	all, err := h.questions.Browse(ctx, questions.Filter{})
	if err != nil {
		logger.Errorf("student dashboard: %v", err)
		h.fail(c, http.StatusInternalServerError, "Your dashboard is unavailable right now.")
		return
	}
	recent, err := h.questions.Recent(ctx, dashboardListSize)
	if err != nil {
		logger.Warnf("student dashboard: recent: %v", err)
	}
	recommended, err := h.questions.Recommended(ctx, user.Level, dashboardListSize)
	if err != nil {
		logger.Warnf("student dashboard: recommended: %v", err)
	}
	h.render(c, http.StatusOK, "student_dashboard.html", gin.H{
		"Total":       len(all),
		"Recent":      recent,
		"Recommended": recommended,
	})
}

func (h *PageHandler) teacherDashboard(c *gin.Context) {
	h.renderTeacherDashboard(c, http.StatusOK, forms.NewUpload(h.now()), nil)
}

func (h *PageHandler) renderTeacherDashboard(c *gin.Context, status int, form forms.Upload, ferr *forms.FieldError) {
	user := h.user(c)
	if user == nil {
		return
	}
	uploads, err := h.questions.RecentUploads(c.Request.Context(), user.ID, uploadHistorySize)
	if err != nil {
		logger.Warnf("teacher dashboard: uploads: %v", err)
	}
	downloads := 0
	for _, q := range uploads {
		downloads += q.Downloads
	}
	h.render(c, status, "teacher_dashboard.html", gin.H{
		"Uploads":   uploads,
		"Downloads": downloads,
		"Form":      form,
		"Error":     ferr,
		"Years":     forms.UploadYears(h.now()),
		"Semesters": forms.Semesters,
		"Levels":    forms.Levels,
	})
}

func (h *PageHandler) upload(c *gin.Context) {
	client := h.client(c)
	if client == nil {
		return
	}
	user := h.user(c)
	if user == nil {
		return
	}
	var f forms.Upload
	_ = c.ShouldBind(&f)
	// only the name is kept; the body is discarded with the request
	if fh, err := c.FormFile("file"); err == nil {
		f.FileName = fh.Filename
	}
	f.Normalize()
	now := h.now()
	if err := f.ValidateAt(now); err != nil {
		h.renderTeacherDashboard(c, http.StatusBadRequest, f, fieldError(err))
		return
	}
	q, err := h.questions.Upload(c.Request.Context(), service.UploadInput{
		CourseCode: f.CourseCode,
		Title:      f.CourseTitle,
		Year:       f.YearInt(),
		Semester:   f.Semester,
		Level:      f.Level,
		Format:     f.Format(),
		UploadedBy: user.ID,
	})
	if err != nil {
		logger.Errorf("upload %s: %v", f.CourseCode, err)
		client.Notes.Notify(notify.Failure("Upload failed", "An unexpected error occurred"))
		h.renderTeacherDashboard(c, http.StatusInternalServerError, f, nil)
		return
	}
	client.Notes.Notify(notify.Success("Upload successful", q.CourseCode+": "+q.Title+" has been uploaded."))
	c.Redirect(http.StatusSeeOther, "/teacher/dashboard")
}

func fieldError(err error) *forms.FieldError {
	var fe *forms.FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return &forms.FieldError{Message: err.Error()}
}

// localPath accepts only same-site absolute paths.
func localPath(p, fallback string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}

// yearsOf lists the distinct years in list, newest first.
func yearsOf(list []*questions.PastQuestion) []string {
	seen := map[int]bool{}
	var years []int
	for _, q := range list {
		if !seen[q.Year] {
			seen[q.Year] = true
			years = append(years, q.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
