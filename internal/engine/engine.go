// Package engine binds a table to an LLM runtime and turns free-text
// questions into classified replies. The engine owns prompt construction and
// reply decoding; it performs no normalization — that is the dispatcher's
// job.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tableloom/internal/ai"
	"github.com/KaramelBytes/tableloom/internal/analysis"
	"github.com/KaramelBytes/tableloom/internal/table"
	"github.com/KaramelBytes/tableloom/internal/utils"
)

// promptTokenBudget bounds the system prompt so wide tables with long cells
// cannot blow past typical context windows. Row truncation via PromptRows
// happens first; this is the backstop.
const promptTokenBudget = 24000

// Options configures generation parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptRows caps how many sample rows the prompt includes.
	PromptRows int
}

// Engine is a session-scoped handle bound to one table. It is safe for
// concurrent use; the bound table is never mutated.
type Engine struct {
	runtime ai.Runtime
	tbl     *table.Table
	profile *analysis.Report
	opt     Options
}

// New binds a table to a runtime. The profile may be nil, in which case one
// is computed.
func New(runtime ai.Runtime, tbl *table.Table, profile *analysis.Report, opt Options) *Engine {
	if opt.PromptRows <= 0 {
		opt.PromptRows = 20
	}
	if profile == nil {
		popt := analysis.DefaultOptions()
		popt.SampleRows = opt.PromptRows
		profile = analysis.Profile(tbl, popt)
	}
	return &Engine{runtime: runtime, tbl: tbl, profile: profile, opt: opt}
}

const systemInstructions = `You answer questions about one tabular dataset.
Reply with exactly one of the following, and nothing else:
- a JSON array of objects (one object per row, identical keys in the same order) when the answer is tabular;
- a single JSON object mapping column names to values when the answer is one row or a set of named columns;
- a bare value or a short plain-text sentence otherwise.
Do not invent columns or rows that are not supported by the data.`

// Ask submits a free-text prompt and returns the classified reply. Provider
// failures propagate unwrapped so callers can inspect their type.
func (e *Engine) Ask(ctx context.Context, prompt string) (Reply, error) {
	req := ai.GenerateRequest{
		Model:       e.opt.Model,
		MaxTokens:   e.opt.MaxTokens,
		Temperature: e.opt.Temperature,
		Messages: []ai.Message{
			{Role: "system", Content: e.systemPrompt()},
			{Role: "user", Content: prompt},
		},
	}
	resp, err := e.runtime.Generate(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	return DecodeReply(resp.Content()), nil
}

// systemPrompt embeds the dataset profile and a bounded slice of raw rows so
// the model can answer against actual values, not just the schema.
func (e *Engine) systemPrompt() string {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n\n")
	b.WriteString(e.profile.Markdown())

	n := e.tbl.NumRows()
	if n > e.opt.PromptRows {
		n = e.opt.PromptRows
	}
	if n > 0 {
		b.WriteString("\n[DATA]\n")
		b.WriteString(strings.Join(e.tbl.Columns, "\t"))
		b.WriteString("\n")
		for ri := 0; ri < n; ri++ {
			cells := make([]string, e.tbl.NumColumns())
			for ci := range cells {
				cells[ci] = e.tbl.Cell(ri, ci)
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteString("\n")
		}
		if e.tbl.NumRows() > n {
			fmt.Fprintf(&b, "(%d more rows not shown)\n", e.tbl.NumRows()-n)
		}
	}
	return utils.TruncateTokens(b.String(), promptTokenBudget)
}
