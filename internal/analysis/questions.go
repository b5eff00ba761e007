// SPDX-License-Identifier: MIT

package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/session"
)

// Question count bounds shared with the API layer.
const (
	MinQuestions         = 1
	MaxQuestions         = 20
	DefaultQuestionCount = 6
)

// GenerateQuestions produces numQuestions interview questions. A failed or
// insufficient LLM response degrades to the fallback bank, so the returned
// list always has the requested length.
func (s *Service) GenerateQuestions(ctx context.Context, jdText, resumeText string, numQuestions int) []session.Question {
	if numQuestions < MinQuestions {
		numQuestions = DefaultQuestionCount
	}
	if numQuestions > MaxQuestions {
		numQuestions = MaxQuestions
	}

	if !s.llm.Configured() {
		s.logger.Warn().Str("event", "questions.fallback").Msg("llm not configured, using fallback questions")
		metrics.IncLLMRequest("questions", "fallback")
		return fallbackQuestions(numQuestions)
	}

	prompt := questionPrompt(jdText, resumeText, numQuestions)
	start := time.Now()
	content, err := s.llm.Complete(ctx, questionSystemPrompt, prompt)
	if err != nil && !errors.Is(err, ErrNotConfigured) {
		// One retry after a short pause covers transient provider hiccups.
		s.logger.Warn().Err(err).Str("event", "questions.retry").Msg("llm request failed, retrying once")
		if sleepErr := sleepContext(ctx, time.Second); sleepErr == nil {
			content, err = s.llm.Complete(ctx, questionSystemPrompt, prompt)
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("event", "questions.fallback").Msg("llm question generation failed, using fallback questions")
		metrics.IncLLMRequest("questions", "error")
		return fallbackQuestions(numQuestions)
	}
	metrics.ObserveLLMRequest("questions", time.Since(start).Seconds())

	parsed := ParseQuestions(content)
	if len(parsed) < numQuestions {
		s.logger.Error().
			Int("parsed", len(parsed)).
			Int("requested", numQuestions).
			Str("event", "questions.fallback").
			Msg("llm produced too few questions, using fallback questions")
		metrics.IncLLMRequest("questions", "fallback")
		return fallbackQuestions(numQuestions)
	}

	metrics.IncLLMRequest("questions", "success")
	out := make([]session.Question, numQuestions)
	for i, q := range parsed[:numQuestions] {
		out[i] = session.Question{ID: i + 1, Text: q}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fallbackBank holds generic questions used when the LLM is unavailable.
var fallbackBank = []string{
	"Can you walk me through your professional background and key experiences?",
	"What motivated you to apply for this position?",
	"Can you describe a challenging project you've worked on and how you handled it?",
	"How do you approach problem-solving in your work?",
	"What are your greatest professional strengths?",
	"Can you tell me about a time when you had to learn something new quickly?",
	"How do you handle working under pressure or meeting tight deadlines?",
	"Describe your experience working in a team environment.",
	"What tools and technologies are you most proficient with?",
	"How do you stay current with industry trends and best practices?",
	"Can you discuss a situation where you received constructive feedback and how you responded?",
	"What are your career goals and how does this position align with them?",
	"How do you prioritize tasks when working on multiple projects?",
	"Can you describe your experience with project management or coordination?",
	"What do you consider to be your most significant professional achievement?",
	"How do you handle conflicts or disagreements in a professional setting?",
	"What experience do you have with quality assurance or testing processes?",
	"How do you approach documentation and knowledge sharing?",
	"Can you discuss your experience with stakeholder communication?",
	"What strategies do you use for continuous professional development?",
}

func fallbackQuestions(numQuestions int) []session.Question {
	if numQuestions > len(fallbackBank) {
		numQuestions = len(fallbackBank)
	}
	out := make([]session.Question, numQuestions)
	for i := 0; i < numQuestions; i++ {
		out[i] = session.Question{ID: i + 1, Text: fallbackBank[i]}
	}
	return out
}
