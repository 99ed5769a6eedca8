// Package dispatch mediates between the UI and the query engine. Its one
// job is normalization: whatever shape the engine replies with, the caller
// gets back either a table or display text, never an error from the
// conversion itself.
package dispatch

import (
	"context"

	"github.com/KaramelBytes/tableloom/internal/engine"
	"github.com/KaramelBytes/tableloom/internal/table"
	"go.uber.org/zap"
)

// Asker is the engine surface the dispatcher needs.
type Asker interface {
	Ask(ctx context.Context, prompt string) (engine.Reply, error)
}

// Result is the display-ready outcome of one question: a table or text,
// never both.
type Result struct {
	Table *table.Table
	Text  string
}

// IsTable reports whether the result renders as a grid.
func (r Result) IsTable() bool { return r.Table != nil }

// Dispatcher forwards prompts to an engine and normalizes its replies.
type Dispatcher struct {
	asker  Asker
	logger *zap.Logger
}

// New builds a Dispatcher. A nil logger disables diagnostics.
func New(asker Asker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{asker: asker, logger: logger}
}

// Dispatch submits the prompt and normalizes the reply. The engine call is
// the only failure path: conversion problems are logged and resolved to a
// defined value. The prompt may be empty; no validation is performed.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (Result, error) {
	reply, err := d.asker.Ask(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	return d.normalize(reply), nil
}

// normalize is total over the reply union: one case per variant. When a
// record-shaped reply cannot form a table, the conversion error goes to the
// diagnostic log and the original structure is returned as compact JSON
// text.
func (d *Dispatcher) normalize(reply engine.Reply) Result {
	switch reply.Kind {
	case engine.KindTable:
		return Result{Table: reply.Table}
	case engine.KindRecords:
		t, err := table.FromRecords(reply.Records)
		if err != nil {
			d.logger.Warn("could not convert records to table",
				zap.Int("records", len(reply.Records)),
				zap.Error(err))
			return Result{Text: reply.OriginalJSON()}
		}
		return Result{Table: t}
	case engine.KindRecord:
		t, err := table.FromRecord(reply.Record)
		if err != nil {
			d.logger.Warn("could not convert record to table",
				zap.Int("keys", reply.Record.Len()),
				zap.Error(err))
			return Result{Text: reply.OriginalJSON()}
		}
		return Result{Table: t}
	default:
		return Result{Text: reply.Scalar}
	}
}
