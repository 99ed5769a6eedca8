package analysis_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/tableloom/internal/analysis"
	"github.com/KaramelBytes/tableloom/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New("harvest",
		[]string{"date", "plot", "moisture", "notes"},
		[][]any{
			{"2024-08-10", "A1", "74", "looks healthy"},
			{"2024-08-12", "A1", "71", "minor wilt on row edge"},
			{"2024-08-15", "B3", "68", "dry topsoil this week though"},
		})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return tbl
}

func TestProfileKinds(t *testing.T) {
	rep := analysis.Profile(sampleTable(t), analysis.DefaultOptions())
	kinds := map[string]string{}
	for _, c := range rep.Cols {
		kinds[c.Name] = c.Kind
	}
	if kinds["date"] != "datetime" {
		t.Fatalf("date kind = %q, want datetime", kinds["date"])
	}
	if kinds["moisture"] != "numeric" {
		t.Fatalf("moisture kind = %q, want numeric", kinds["moisture"])
	}
	if kinds["plot"] != "categorical" {
		t.Fatalf("plot kind = %q, want categorical", kinds["plot"])
	}
}

func TestProfileNumericStats(t *testing.T) {
	rep := analysis.Profile(sampleTable(t), analysis.DefaultOptions())
	var m *analysis.ColumnSummary
	for i := range rep.Cols {
		if rep.Cols[i].Name == "moisture" {
			m = &rep.Cols[i]
		}
	}
	if m == nil {
		t.Fatal("moisture column missing from report")
	}
	if m.Min != 68 || m.Max != 74 {
		t.Fatalf("min/max = %v/%v, want 68/74", m.Min, m.Max)
	}
	if m.Mean < 70.9 || m.Mean > 71.1 {
		t.Fatalf("mean = %v, want ~71", m.Mean)
	}
}

func TestProfileMissingCounts(t *testing.T) {
	tbl, err := table.New("x", []string{"a"}, [][]any{{"1"}, {""}, {"3"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	rep := analysis.Profile(tbl, analysis.DefaultOptions())
	if rep.Cols[0].NonNull != 2 || rep.Cols[0].Missing != 1 {
		t.Fatalf("non-null/missing = %d/%d, want 2/1", rep.Cols[0].NonNull, rep.Cols[0].Missing)
	}
}

func TestMarkdownReport(t *testing.T) {
	rep := analysis.Profile(sampleTable(t), analysis.DefaultOptions())
	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[SAMPLE ROWS]", "moisture: numeric", "Rows: 3"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownSampleRowsCapped(t *testing.T) {
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{"v"}
	}
	tbl, err := table.New("x", []string{"a"}, rows)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	opt := analysis.DefaultOptions()
	opt.SampleRows = 3
	rep := analysis.Profile(tbl, opt)
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}
}
