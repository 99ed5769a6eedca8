package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/tableloom/internal/engine"
	"github.com/KaramelBytes/tableloom/internal/table"
)

type fakeAsker struct {
	reply engine.Reply
	err   error
}

func (f *fakeAsker) Ask(context.Context, string) (engine.Reply, error) {
	return f.reply, f.err
}

func rec(pairs ...any) table.Record {
	r := table.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

func TestDispatchTableIdentity(t *testing.T) {
	tbl, err := table.New("x", []string{"a"}, [][]any{{"1"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	d := New(&fakeAsker{reply: engine.TableReply(tbl)}, nil)
	got, err := d.Dispatch(context.Background(), "q")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got.Table != tbl {
		t.Fatal("table reply must pass through unchanged")
	}
}

func TestDispatchRecordsToTable(t *testing.T) {
	d := New(&fakeAsker{reply: engine.RecordsReply([]table.Record{
		rec("a", json.Number("1"), "b", json.Number("2")),
		rec("a", json.Number("3"), "b", json.Number("4")),
	})}, nil)
	got, err := d.Dispatch(context.Background(), "q")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !got.IsTable() {
		t.Fatalf("expected table, got text %q", got.Text)
	}
	if got.Table.NumRows() != 2 || got.Table.Cell(1, 0) != "3" {
		t.Fatalf("unexpected table: rows=%d cell(1,0)=%q", got.Table.NumRows(), got.Table.Cell(1, 0))
	}
}

func TestDispatchSingleRecordToTable(t *testing.T) {
	d := New(&fakeAsker{reply: engine.RecordReply(rec("plot", "B3", "moisture", json.Number("68")))}, nil)
	got, err := d.Dispatch(context.Background(), "q")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !got.IsTable() || got.Table.NumRows() != 1 {
		t.Fatalf("expected one-row table, got %+v", got)
	}
}

func TestDispatchScalarUnchanged(t *testing.T) {
	d := New(&fakeAsker{reply: engine.ScalarReply("42")}, nil)
	got, err := d.Dispatch(context.Background(), "q")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got.IsTable() || got.Text != "42" {
		t.Fatalf("got %+v, want text 42", got)
	}
}

// A reply that cannot form a table must not error; the original structure
// comes back as text and a diagnostic is logged.
func TestDispatchConversionFailureReturnsOriginal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := New(&fakeAsker{reply: engine.RecordsReply([]table.Record{
		rec("a", json.Number("1")),
		rec("b", json.Number("2")),
	})}, zap.New(core))
	got, err := d.Dispatch(context.Background(), "q")
	if err != nil {
		t.Fatalf("dispatch must not fail on conversion: %v", err)
	}
	if got.IsTable() {
		t.Fatal("mismatched records must not produce a table")
	}
	if got.Text != `[{"a":1},{"b":2}]` {
		t.Fatalf("text = %s, want original structure", got.Text)
	}
	if logs.FilterMessage("could not convert records to table").Len() != 1 {
		t.Fatalf("expected one conversion warning, got %d entries", logs.Len())
	}
}

func TestDispatchEngineErrorPropagates(t *testing.T) {
	boom := errors.New("auth failed")
	d := New(&fakeAsker{err: boom}, nil)
	_, err := d.Dispatch(context.Background(), "q")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want engine error", err)
	}
}
