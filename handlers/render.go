package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile = "layout.html"
	errorPage  = "error.html"
)

var templateFuncs = template.FuncMap{
	"tabLabel": func(tab string) string {
		if tab == questions.TabAll {
			return "All"
		}
		return tab + " Level"
	},
}

// pageRenderer gives every page its own template set so each can define
// "title" and "content" for the shared layout.
type pageRenderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded page templates for gin's HTMLRender.
func NewRenderer() (render.HTMLRender, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &pageRenderer{pages: map[string]*template.Template{}}
	for _, name := range names {
		page := path.Base(name)
		if page == layoutFile {
			continue
		}
		t, err := template.New(layoutFile).Funcs(templateFuncs).ParseFS(templateFS, "templates/"+layoutFile)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if t, err = t.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	if _, ok := r.pages[errorPage]; !ok {
		return nil, fmt.Errorf("missing %s", errorPage)
	}
	return r, nil
}

func (r *pageRenderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages[errorPage]
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}
