// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
)

// Pipeline step names as they appear in errors, logs, and metrics.
const (
	StepUpload    = "upload"
	StepAnalyze   = "analyze"
	StepQuestions = "questions"
	StepCreate    = "create-session"
)

// DefaultQuestionCount is requested when the caller does not choose one.
const DefaultQuestionCount = 6

// Pipeline runs the strictly ordered setup sequence: upload → analyze →
// generate-questions → create-session. Each step gates the next; the first
// failure aborts the run. There are no retries inside a step — the user
// resubmits the form.
type Pipeline struct {
	backend   Backend
	presenter Presenter
	timeouts  Timeouts
	questions int
	clock     Clock
	logger    zerolog.Logger
}

// NewPipeline builds a setup pipeline. numQuestions of 0 means the default.
func NewPipeline(b Backend, p Presenter, t Timeouts, numQuestions int) *Pipeline {
	if p == nil {
		p = NopPresenter{}
	}
	if numQuestions <= 0 {
		numQuestions = DefaultQuestionCount
	}
	return &Pipeline{
		backend:   b,
		presenter: p,
		timeouts:  t.withDefaults(),
		questions: numQuestions,
		clock:     RealClock(),
		logger:    log.WithComponent("pipeline"),
	}
}

// Run executes the four steps and returns the minted session descriptor.
// Progress is reported after each completed step and is monotonic within
// one run. The returned error is always a *PipelineError.
func (p *Pipeline) Run(ctx context.Context, form FormInput) (*backend.SessionDescriptor, error) {
	if form.JD == nil || form.Resume == nil {
		return nil, &PipelineError{Step: StepUpload, Err: errors.New("both documents must be attached")}
	}

	var upload *backend.UploadResult
	err := p.step(ctx, StepUpload, p.timeouts.Upload, func(ctx context.Context) error {
		var err error
		upload, err = p.backend.Upload(ctx,
			backend.Document{Filename: form.JD.Filename, Content: form.JD.Content},
			backend.Document{Filename: form.Resume.Filename, Content: form.Resume.Content})
		return err
	})
	if err != nil {
		return nil, err
	}
	p.presenter.Progress(25, "Documents uploaded and text extracted")

	err = p.step(ctx, StepAnalyze, p.timeouts.Analyze, func(ctx context.Context) error {
		_, err := p.backend.Analyze(ctx, upload.JDFull, upload.ResumeFull)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.presenter.Progress(50, "Resume analyzed against the position")

	var questions []backend.Question
	err = p.step(ctx, StepQuestions, p.timeouts.Questions, func(ctx context.Context) error {
		var err error
		questions, err = p.backend.GenerateQuestions(ctx, upload.JDFull, upload.ResumeFull, p.questions)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, &PipelineError{Step: StepQuestions, Err: errors.New("backend returned no questions")}
	}
	p.presenter.Progress(75, fmt.Sprintf("%d interview questions prepared", len(questions)))

	var desc *backend.SessionDescriptor
	err = p.step(ctx, StepCreate, p.timeouts.CreateSession, func(ctx context.Context) error {
		var err error
		desc, err = p.backend.CreateSession(ctx, backend.CreateSessionRequest{
			CandidateName:  form.Name,
			CandidateEmail: form.Email,
			Position:       form.Position,
			Questions:      questions,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if desc == nil || desc.SessionID == "" || desc.Token == "" {
		return nil, &PipelineError{Step: StepCreate, Err: errors.New("backend returned an incomplete session descriptor")}
	}
	p.presenter.Progress(100, "Interview session created")

	metrics.IncPipelineRun("success")
	p.logger.Info().
		Str(log.FieldEvent, "pipeline.completed").
		Str(log.FieldSessionID, desc.SessionID).
		Int("questions", len(questions)).
		Msg("setup pipeline completed")
	return desc, nil
}

// step runs one pipeline step under its own deadline and maps failures to
// a *PipelineError. A deadline hit is reported as a timeout so the surfaced
// guidance differs from a server rejection.
func (p *Pipeline) step(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.clock.Now()
	err := fn(stepCtx)
	metrics.ObservePipelineStep(name, p.clock.Now().Sub(start).Seconds())
	if err == nil {
		return nil
	}

	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, backend.ErrTimeout)
	reason := "request"
	if timedOut {
		reason = "timeout"
	}
	metrics.IncPipelineStepFailure(name, reason)
	metrics.IncPipelineRun("failure")

	p.logger.Warn().Err(err).
		Str(log.FieldEvent, "pipeline.step_failed").
		Str(log.FieldStep, name).
		Bool("timed_out", timedOut).
		Msg("setup pipeline aborted")
	return &PipelineError{Step: name, Timeout: timedOut, Err: err}
}
