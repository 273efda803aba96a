package echoapi

import (
	"embed"
	"html/template"
	"io"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core/resource"
)

//go:embed templates
var templateFS embed.FS

const layoutTemplate = "layout"

var (
	pagePolicy = bluemonday.UGCPolicy()

	// pages re-rendered when the visitor changes their timezone
	reloadOnTimezoneChange = map[string]bool{"events": true, "event_detail": true}

	templateFuncs = template.FuncMap{
		"content":   func(s string) template.HTML { return template.HTML(resource.Sanitize(s)) },
		"pageHTML":  func(s string) template.HTML { return template.HTML(pagePolicy.Sanitize(s)) },
		"localTime": localTime,
		"join":      strings.Join,
		"has":       hasString,
		"hasInt":    hasInt,
		"isTrue":    func(b *bool) bool { return b != nil && *b },
		"isFalse":   func(b *bool) bool { return b != nil && !*b },
	}
)

// view is what every template receives. Data is the handler's own data.
type view struct {
	Data             interface{}
	Location         *time.Location
	Timezone         string
	Timezones        []string
	DaysToGo         int
	ContributionOpen bool
	Year             int
	Reload           bool
}

type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
	resources *resource.Service
}

func newRenderer(resources *resource.Service) *renderer {
	r := &renderer{
		pages:     make(map[string]*template.Template),
		resources: resources,
		fragments: template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/fragments/*.html")),
	}

	files, err := templateFS.ReadDir("templates/pages")
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), path.Ext(f.Name()))
		r.pages[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
				"templates/layout.html",
				"templates/partials/*.html",
				"templates/pages/"+f.Name(),
			),
		)
	}
	return r
}

// Render implements echo.Renderer. Pages are wrapped in the layout, fragments are rendered alone.
func (r *renderer) Render(w io.Writer, name string, data interface{}, ctx echo.Context) error {
	if tmpl := r.fragments.Lookup(name); tmpl != nil {
		return tmpl.Execute(w, data)
	}

	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	loc := contextLocation(ctx)
	v := view{
		Data:      data,
		Location:  loc,
		Timezone:  loc.String(),
		Timezones: timezoneChoices,
		Reload:    reloadOnTimezoneChange[name],
	}
	if r.resources != nil {
		week := r.resources.Week()
		v.Year = week.Year
		v.DaysToGo, _ = week.DaysToGo(time.Now())
		v.ContributionOpen = r.resources.ContributionOpen()
	}
	return tmpl.ExecuteTemplate(w, layoutTemplate, v)
}

// localTime formats an event time in the visitor's timezone.
func localTime(t null.Time, loc *time.Location) string {
	if !t.Valid {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.Time.In(loc).Format("Monday, January 2, 2006 15:04 MST")
}

func hasString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func hasInt(list []int, i int) bool {
	for _, item := range list {
		if item == i {
			return true
		}
	}
	return false
}
