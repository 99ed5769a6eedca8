// Package analysis profiles an in-memory table: per-column type inference
// and summary statistics, rendered as a compact markdown report. The report
// is shown alongside the dataset in the web UI and embedded in the query
// engine's prompt so the model knows the schema it is being asked about.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tableloom/internal/table"
)

// Options controls profiling behavior.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// MaxCategories caps the number of top values reported per categorical column.
	MaxCategories int
}

// DefaultOptions returns reasonable defaults.
func DefaultOptions() Options {
	return Options{SampleRows: 5, MaxCategories: 8}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name    string
	Rows    int
	Cols    []ColumnSummary
	Samples [][]string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

// CategoryCount pairs a categorical value with its occurrence count.
type CategoryCount struct {
	Value string
	Count int
}

// Profile analyzes a table and returns its Report.
func Profile(t *table.Table, opt Options) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = 8
	}
	ncol := t.NumColumns()
	rep := &Report{Name: t.Name, Rows: t.NumRows()}

	type colAcc struct {
		name   string
		nonNil int
		miss   int
		// numeric stats via Welford
		n      int
		mean   float64
		m2     float64
		min    float64
		max    float64
		numCnt int
		dtCnt  int
		txtCnt int
		cats   map[string]int
		exText []string
	}
	cols := make([]*colAcc, ncol)
	for i, name := range t.Columns {
		cols[i] = &colAcc{name: name, min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int)}
	}

	for ri, row := range t.Rows {
		if ri < opt.SampleRows {
			sample := make([]string, ncol)
			for ci := range sample {
				sample[ci] = t.Cell(ri, ci)
			}
			rep.Samples = append(rep.Samples, sample)
		}
		for ci := 0; ci < ncol && ci < len(row); ci++ {
			v := strings.TrimSpace(table.FormatValue(row[ci]))
			c := cols[ci]
			if v == "" {
				c.miss++
				continue
			}
			c.nonNil++
			if x, ok := parseNumeric(v); ok {
				c.numCnt++
				c.n++
				if x < c.min {
					c.min = x
				}
				if x > c.max {
					c.max = x
				}
				delta := x - c.mean
				c.mean += delta / float64(c.n)
				c.m2 += delta * (x - c.mean)
				continue
			}
			if parseTimeMaybe(v) {
				c.dtCnt++
				continue
			}
			c.txtCnt++
			if len(c.cats) <= 10000 && len(v) <= 64 {
				c.cats[v]++
			}
			if len(c.exText) < 3 {
				c.exText = append(c.exText, v)
			}
		}
	}

	rep.Cols = make([]ColumnSummary, 0, ncol)
	for _, c := range cols {
		s := ColumnSummary{Name: c.name, NonNull: c.nonNil, Missing: c.miss}
		kind := "unknown"
		switch {
		case c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt && c.numCnt > 0:
			kind = "numeric"
			s.Min = c.min
			s.Max = c.max
			s.Mean = c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
		case c.dtCnt >= c.txtCnt && c.dtCnt > 0:
			kind = "datetime"
		case len(c.cats) > 0:
			kind = "categorical"
			tops := make([]CategoryCount, 0, len(c.cats))
			for k, v := range c.cats {
				tops = append(tops, CategoryCount{Value: k, Count: v})
			}
			sort.Slice(tops, func(i, j int) bool {
				if tops[i].Count == tops[j].Count {
					return tops[i].Value < tops[j].Value
				}
				return tops[i].Count > tops[j].Count
			})
			s.Unique = len(tops)
			if len(tops) > opt.MaxCategories {
				tops = tops[:opt.MaxCategories]
			}
			s.TopValues = tops
		case c.txtCnt > 0:
			kind = "text"
			s.ExampleTexts = c.exText
		}
		s.Kind = kind
		rep.Cols = append(rep.Cols, s)
	}
	return rep
}

func parseTimeMaybe(s string) bool {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}

func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	raw = strings.ReplaceAll(raw, " ", " ")
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Markdown renders a compact report suitable for prompts or standalone display.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Name: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" — e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
