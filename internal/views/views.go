// Package views renders the HTML pages. Templates and static assets are
// embedded in the binary; each page is parsed together with the layout and
// the shared components.
package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
	"github.com/smarttransit/busticket-web/internal/utils"
	"github.com/smarttransit/busticket-web/pkg/validator"
)

//go:embed templates
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var phones = validator.NewPhoneValidator()

// AppName is shown in the navbar, titles and tickets
const AppName = "BusTicket"

// Page is the data every page template receives
type Page struct {
	Title   string
	Nav     string // active navbar entry
	User    *models.User
	Flash   []session.Flash
	CSRF    string // session token for form posts
	Content interface{}
}

// IsAdmin reports whether the viewer is an admin
func (p Page) IsAdmin() bool {
	return p.User.IsAdmin()
}

// Renderer implements gin's render.HTMLRender over the embedded templates
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// NewRenderer parses every page with the layout and components
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}

	shared := []string{"templates/layout.html"}
	partials, err := fs.Glob(templateFiles, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list partials: %w", err)
	}
	shared = append(shared, partials...)

	pages, err := fs.Glob(templateFiles, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("no page templates embedded")
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	funcs := Funcs(loc)
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		files := append(append([]string{}, shared...), page)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	return r, nil
}

// Instance returns the render for a page name
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		return render.String{Format: "page %q not found", Data: []interface{}{name}}
	}
	return render.HTML{Template: tmpl, Name: "layout", Data: data}
}

// Has reports whether a page template exists
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// StaticFS serves the embedded stylesheet and scripts
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// ============================================================================
// TEMPLATE FUNCTIONS
// ============================================================================

// Funcs returns the helpers available to templates
func Funcs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"appName": func() string { return AppName },
		"rwf":     utils.FormatRWF,
		"amount":  utils.FormatAmount,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format("02 Jan 2006")
		},
		"clock": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format("15:04")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format("02 Jan 2006, 15:04")
		},
		"inputTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("2006-01-02T15:04")
		},
		"phone":       phones.Display,
		"number":      formatNumber,
		"badge":       StatusBadge,
		"title":       titleCase,
		"dict":        dict,
		"seq":         seq,
		"inc":         func(i int) int { return i + 1 },
		"lower":       strings.ToLower,
		"join":        strings.Join,
		"contains":    containsString,
		"alertClass":  alertClass,
		"buttonClass": buttonClass,
	}
}

// StatusBadge maps a booking status to its badge class
func StatusBadge(status models.BookingStatus) string {
	switch status {
	case models.BookingStatusConfirmed:
		return "badge badge-green"
	case models.BookingStatusPending:
		return "badge badge-yellow"
	case models.BookingStatusCancelled:
		return "badge badge-red"
	case models.BookingStatusCompleted:
		return "badge badge-blue"
	default:
		return "badge badge-gray"
	}
}

func alertClass(kind interface{}) string {
	switch fmt.Sprint(kind) {
	case session.FlashSuccess:
		return "alert alert-success"
	case session.FlashError:
		return "alert alert-error"
	default:
		return "alert alert-info"
	}
}

// buttonClass takes untyped arguments since components get them from dict
// and missing keys arrive as nil
func buttonClass(variant, fullWidth interface{}) string {
	name, _ := variant.(string)
	if name == "" {
		name = "primary"
	}
	class := "btn btn-" + name
	if block, _ := fullWidth.(bool); block {
		class += " btn-block"
	}
	return class
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func titleCase(s interface{}) string {
	str := fmt.Sprint(s)
	if str == "" {
		return ""
	}
	return strings.ToUpper(str[:1]) + str[1:]
}

// dict builds a map from key/value pairs for component arguments
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs an even number of arguments")
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// seq returns 1..n for option lists
func seq(n int) []int {
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, i)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
