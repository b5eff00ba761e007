// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhire/voxhire/internal/backend"
)

func validFormInput() FormInput {
	return FormInput{
		Name:     "Jordan Reyes",
		Email:    "jordan@example.com",
		Position: "Backend Engineer",
		JD:       &Attachment{Filename: "jd.pdf", Content: []byte("job description")},
		Resume:   &Attachment{Filename: "resume.pdf", Content: []byte("resume")},
	}
}

func TestPipelineHappyPath(t *testing.T) {
	fb := newFakeBackend()
	pres := newRecordingPresenter()
	p := NewPipeline(fb, pres, testTimeouts(), 5)

	desc, err := p.Run(context.Background(), validFormInput())
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.NotEmpty(t, desc.SessionID)
	assert.NotEmpty(t, desc.Token)
	assert.Len(t, desc.Questions, 5, "question list has the requested length")

	pres.mu.Lock()
	defer pres.mu.Unlock()
	assert.Equal(t, []int{25, 50, 75, 100}, pres.progress, "progress after every step, monotonic")
}

func TestPipelineStepFailureShortCircuits(t *testing.T) {
	tests := []struct {
		name     string
		arrange  func(*fakeBackend)
		failStep string
		calls    [4]int // expected upload, analyze, questions, create counts
	}{
		{
			name:     "upload fails",
			arrange:  func(fb *fakeBackend) { fb.uploadErr = errors.New("extraction failed") },
			failStep: StepUpload,
			calls:    [4]int{1, 0, 0, 0},
		},
		{
			name:     "analyze fails",
			arrange:  func(fb *fakeBackend) { fb.analyzeErr = errors.New("model unavailable") },
			failStep: StepAnalyze,
			calls:    [4]int{1, 1, 0, 0},
		},
		{
			name:     "questions fail",
			arrange:  func(fb *fakeBackend) { fb.questionsErr = errors.New("no questions") },
			failStep: StepQuestions,
			calls:    [4]int{1, 1, 1, 0},
		},
		{
			name:     "create fails",
			arrange:  func(fb *fakeBackend) { fb.createErr = errors.New("store unavailable") },
			failStep: StepCreate,
			calls:    [4]int{1, 1, 1, 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := newFakeBackend()
			tc.arrange(fb)
			p := NewPipeline(fb, nil, testTimeouts(), 0)

			_, err := p.Run(context.Background(), validFormInput())
			require.Error(t, err)

			var pe *PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.failStep, pe.Step)
			assert.False(t, pe.Timeout)

			u, a, q, cr := fb.calls()
			assert.Equal(t, tc.calls, [4]int{u, a, q, cr}, "steps after the failure never run")
		})
	}
}

func TestPipelineTimeoutIsDistinguished(t *testing.T) {
	fb := newFakeBackend()
	fb.analyzeErr = &backend.APIError{Sentinel: backend.ErrTimeout, Operation: "analyze"}
	p := NewPipeline(fb, nil, testTimeouts(), 0)

	_, err := p.Run(context.Background(), validFormInput())
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Timeout)
	assert.Contains(t, pe.UserMessage(), "timed out", "timeout guidance differs from a rejection")
	assert.Contains(t, pe.UserMessage(), "smaller")
}

func TestPipelineServerMessageSurfacesVerbatim(t *testing.T) {
	fb := newFakeBackend()
	fb.questionsErr = &backend.APIError{
		Sentinel:  backend.ErrRemote,
		Operation: "generate-questions",
		Status:    422,
		Message:   "resume text too long",
	}
	p := NewPipeline(fb, nil, testTimeouts(), 0)

	_, err := p.Run(context.Background(), validFormInput())
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.UserMessage(), "resume text too long", "server message kept verbatim")
}

func TestPipelineRejectsMissingAttachments(t *testing.T) {
	fb := newFakeBackend()
	p := NewPipeline(fb, nil, testTimeouts(), 0)

	form := validFormInput()
	form.Resume = nil
	_, err := p.Run(context.Background(), form)
	require.Error(t, err)

	u, _, _, _ := fb.calls()
	assert.Zero(t, u, "nothing is uploaded without both documents")
}

// emptyQuestionsBackend reports success with an empty question list.
type emptyQuestionsBackend struct{ *fakeBackend }

func (b *emptyQuestionsBackend) GenerateQuestions(context.Context, string, string, int) ([]backend.Question, error) {
	return nil, nil
}

func TestPipelineRejectsEmptyQuestionList(t *testing.T) {
	fb := &emptyQuestionsBackend{fakeBackend: newFakeBackend()}
	p := NewPipeline(fb, nil, testTimeouts(), 0)

	_, err := p.Run(context.Background(), validFormInput())
	require.Error(t, err)

	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StepQuestions, pe.Step)
	assert.Zero(t, fb.createCalls, "create-session never runs without questions")
}
