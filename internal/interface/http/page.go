package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageRenderer struct {
	tmpl *template.Template
}

type pageView struct {
	dashboard.Page
	Notice string
	Fields []fieldView
	Stamp  int64
}

type fieldView struct {
	Name  string
	Label string
	Value string
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"percent":    fraction.FormatPercent,
		"badgeLabel": prediction.BadgeLabel,
		"threshold":  prediction.FormatThreshold,
		"fixed1":     func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"markerClass": func(tip chart.Tip) string {
			if tip.InRange {
				return "in-range"
			}
			return "out-of-range"
		},
	}
	tmpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	return &pageRenderer{tmpl: tmpl}
}

func (r *pageRenderer) render(page dashboard.Page, notice string) ([]byte, error) {
	view := pageView{Page: page, Notice: notice, Stamp: page.State.UpdatedAt.UnixMilli()}
	for _, name := range fraction.Names {
		view.Fields = append(view.Fields, fieldView{
			Name:  name,
			Label: fraction.Label(name),
			Value: fmt.Sprintf("%.2f", page.Form.Get(name)),
		})
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "index.html", view); err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return buf.Bytes(), nil
}
