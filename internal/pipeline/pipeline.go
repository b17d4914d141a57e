// Package pipeline threads a compilation through ordered stages the same
// way the teacher's internal/pipeline/pipeline.go threads a source file
// through lexing/parsing: each stage may append diagnostics without
// aborting the run, so a caller inspecting Context.Errors after Run sees
// every stage's complaints from a single compile (spec.md §7).
package pipeline

import "github.com/funvibe/funcps/internal/ast"

// Context carries the in-progress compilation across stages.
type Context struct {
	FuncName string
	Body     []ast.Stmt
	Args     ast.Arguments
	Errors   []error
}

// AddError records a diagnostic without interrupting the pipeline.
func (c *Context) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Stage transforms a Context, appending to Errors instead of returning
// one, so later stages still run and can report their own diagnostics.
type Stage interface {
	Process(ctx *Context) *Context
}

// Pipeline is an ordered sequence of stages.
type Pipeline struct {
	stages []Stage
}

// New builds a Pipeline from the given stages, run in order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes every stage in order over ctx, continuing past per-stage
// errors exactly as the teacher's pipeline does.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, s := range p.stages {
		ctx = s.Process(ctx)
	}
	return ctx
}
