// Package pipeline reviews documents end to end and aggregates a batch summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/corpagent/internal/checklist"
	"github.com/ppiankov/corpagent/internal/classify"
	"github.com/ppiankov/corpagent/internal/extract"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
	"github.com/ppiankov/corpagent/internal/retrieve"
	"github.com/ppiankov/corpagent/internal/review"
	"github.com/ppiankov/corpagent/internal/rules"
	"github.com/ppiankov/corpagent/internal/worker"
)

// Input is one document submitted for review
type Input struct {
	FileID string
	Name   string
	Path   string
}

// InputsFromPaths assigns file ids in argument order
func InputsFromPaths(paths []string) []Input {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = Input{
			FileID: fmt.Sprintf("doc-%03d", i+1),
			Name:   filepath.Base(p),
			Path:   p,
		}
	}
	return inputs
}

// Pipeline orchestrates classification, detection, retrieval and checklist verification
type Pipeline struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
	rules      *rules.Registry
	retriever  *retrieve.Engine // nil disables references
	detector   *review.Detector // nil disables model review
	checklist  checklist.Checklist
	writer     *Writer // nil disables annotated output
	workers    int
}

// Options wires the pipeline's collaborators. Nil fields fall back to the
// built-in defaults or disable the stage.
type Options struct {
	Extractor  *extract.Extractor
	Classifier *classify.Classifier
	Rules      *rules.Registry
	Retriever  *retrieve.Engine
	Detector   *review.Detector
	Checklist  *checklist.Checklist
	Writer     *Writer
	Workers    int
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	p := &Pipeline{
		extractor:  opts.Extractor,
		classifier: opts.Classifier,
		rules:      opts.Rules,
		retriever:  opts.Retriever,
		detector:   opts.Detector,
		writer:     opts.Writer,
		workers:    opts.Workers,
	}
	if p.extractor == nil {
		p.extractor = extract.NewExtractor()
	}
	if p.classifier == nil {
		p.classifier = classify.New(classify.DefaultPatterns)
	}
	if p.rules == nil {
		p.rules = rules.Default()
	}
	if opts.Checklist != nil {
		p.checklist = *opts.Checklist
	} else {
		p.checklist = checklist.Incorporation()
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	return p
}

// ReviewFile extracts and reviews one file. A non-nil error means the
// review was interrupted by ctx and the outcome must be discarded.
func (p *Pipeline) ReviewFile(ctx context.Context, in Input) (Outcome, error) {
	text, err := p.extractor.ExtractFile(in.Path)
	if err != nil {
		logger.Warn("%s: %v", in.Name, err)
		return Failed(in.FileID, in.Name, nil, fmt.Errorf("text extraction failed: %w", err)), nil
	}
	return p.ReviewDocument(ctx, in.FileID, in.Name, text)
}

// ReviewDocument runs rules, retrieval and model review concurrently over
// text. Panics are recovered into a Failed outcome. A non-nil error means
// ctx interrupted the review and the outcome must be discarded.
func (p *Pipeline) ReviewDocument(ctx context.Context, fileID, name, text string) (out Outcome, err error) {
	var references []model.ReferenceMatch
	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s: review panicked: %v", name, r)
			out, err = Failed(fileID, name, references, fmt.Errorf("review panicked: %v", r)), nil
		}
	}()

	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	if strings.TrimSpace(text) == "" {
		return Failed(fileID, name, nil, errors.New("text extraction failed: no text")), nil
	}

	docType := p.classifier.Classify(text)

	var ruleIssues, modelIssues []model.Issue
	g, gctx := errgroup.WithContext(ctx)

	g.Go(guard("rules", func() error {
		ruleIssues = p.rules.Detect(text)
		return nil
	}))

	if p.retriever != nil {
		g.Go(guard("retrieval", func() error {
			references = p.retriever.Retrieve(gctx, text)
			return nil
		}))
	}

	if p.detector != nil {
		g.Go(guard("model review", func() error {
			issues, err := p.detector.Detect(gctx, text)
			if err != nil {
				return err
			}
			modelIssues = issues
			return nil
		}))
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		logger.Warn("%s: %v", name, err)
		return Failed(fileID, name, references, err), nil
	}
	// Stages degrade on cancellation instead of failing, so a nil group
	// error does not mean the review completed
	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}

	issues := make([]model.Issue, 0, len(ruleIssues)+len(modelIssues))
	issues = append(issues, ruleIssues...)
	issues = append(issues, modelIssues...)

	if references == nil {
		references = []model.ReferenceMatch{}
	}

	return Ok(model.DocumentResult{
		FileID:       fileID,
		FileName:     name,
		DetectedType: docType,
		Issues:       issues,
		References:   references,
	}, text), nil
}

// guard turns a panic inside one review stage into an error
func guard(stage string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", stage, r)
			}
		}()
		return fn()
	}
}

// documentJob adapts one input to the worker pool
type documentJob struct {
	pipeline *Pipeline
	input    Input
}

type documentResult struct {
	outcome Outcome
	err     error
}

func (r *documentResult) GetError() error { return r.err }

func (j *documentJob) Execute(ctx context.Context) worker.Result {
	outcome, err := j.pipeline.ReviewFile(ctx, j.input)
	if err == nil && j.pipeline.writer != nil && outcome.OK() {
		if _, werr := j.pipeline.writer.WriteAnnotated(outcome); werr != nil {
			logger.Warn("%s: write annotated copy: %v", j.input.Name, werr)
		}
	}
	return &documentResult{outcome: outcome, err: err}
}

// ReviewBatch reviews inputs with bounded parallelism and verifies the
// checklist over the completed documents. On cancellation it stops
// dispatching, discards unfinished documents and returns the summary of the
// completed ones together with ctx's error.
func (p *Pipeline) ReviewBatch(ctx context.Context, inputs []Input) (*model.BatchSummary, error) {
	pool := worker.NewPool(ctx, p.workers)
	pool.Start()
	defer pool.Shutdown()

	for _, in := range inputs {
		if !pool.Submit(&documentJob{pipeline: p, input: in}) {
			break
		}
	}
	results := pool.Wait()

	outcomes := make([]Outcome, 0, len(results))
	for _, res := range results {
		dr, ok := res.(*documentResult)
		if !ok || dr == nil || dr.err != nil {
			continue
		}
		outcomes = append(outcomes, dr.outcome)
	}

	summary := p.Summarize(outcomes)
	if discarded := len(inputs) - len(outcomes); discarded > 0 {
		logger.Warn("%d of %d documents not reviewed", discarded, len(inputs))
	}
	return summary, pool.Err()
}

// Summarize aggregates outcomes into a batch summary
func (p *Pipeline) Summarize(outcomes []Outcome) *model.BatchSummary {
	detected := make([]string, 0, len(outcomes))
	perDoc := make([]model.DocumentResult, 0, len(outcomes))
	for _, o := range outcomes {
		res := o.Result()
		detected = append(detected, res.DetectedType)
		perDoc = append(perDoc, res)
	}

	required := make([]string, len(p.checklist.Required))
	copy(required, p.checklist.Required)

	return &model.BatchSummary{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		Process:       p.checklist.Process,
		RequiredTypes: required,
		DetectedTypes: checklist.Distinct(detected),
		Missing:       p.checklist.Missing(detected),
		PerDocument:   perDoc,
	}
}
