package web

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tableloom/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// grid is a display-ready table: everything pre-formatted to strings so the
// template stays dumb.
type grid struct {
	Columns []string
	Rows    [][]string
}

func gridFromTable(t *table.Table) *grid {
	g := &grid{Columns: t.Columns, Rows: make([][]string, t.NumRows())}
	for ri := range g.Rows {
		row := make([]string, t.NumColumns())
		for ci := range row {
			row[ci] = t.Cell(ri, ci)
		}
		g.Rows[ri] = row
	}
	return g
}

type indexData struct {
	Error string
}

type datasetData struct {
	ID      string
	Name    string
	Grid    *grid
	Summary string

	Asked      bool
	Prompt     string
	Result     *grid
	ResultText string
	Error      string
}

func (s *Server) datasetData(d *Dataset) datasetData {
	return datasetData{
		ID:      d.ID,
		Name:    d.Name,
		Grid:    gridFromTable(d.Table),
		Summary: d.Profile.Markdown(),
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}
