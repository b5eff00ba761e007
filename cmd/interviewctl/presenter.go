// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/types"
)

// consolePresenter renders the orchestrator's output on a terminal. Results
// and terminal failures additionally land on channels so the run command can
// block until the interview is over.
type consolePresenter struct {
	out     zerolog.Logger
	results chan interview.Outcome
	failed  chan struct{}
}

func newConsolePresenter(w io.Writer) *consolePresenter {
	if w == nil {
		w = os.Stdout
	}
	writer := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return &consolePresenter{
		out:     zerolog.New(writer).With().Timestamp().Logger(),
		results: make(chan interview.Outcome, 1),
		failed:  make(chan struct{}, 1),
	}
}

func (p *consolePresenter) StateChanged(old, next types.ConnectionState) {
	p.out.Info().
		Str("from", old.String()).
		Str("to", next.String()).
		Msg("connection state")
}

func (p *consolePresenter) Progress(percent int, label string) {
	p.out.Info().Int("percent", percent).Msg(label)
}

func (p *consolePresenter) Notice(level interview.NoticeLevel, message string) {
	switch level {
	case interview.NoticeWarn:
		p.out.Warn().Msg(message)
	case interview.NoticeError:
		p.out.Error().Msg(message)
		// Error notices come only from terminal failures: a failed setup
		// pipeline or an exhausted connect budget.
		select {
		case p.failed <- struct{}{}:
		default:
		}
	default:
		p.out.Info().Msg(message)
	}
}

func (p *consolePresenter) Results(outcome interview.Outcome) {
	select {
	case p.results <- outcome:
	default:
	}
}
