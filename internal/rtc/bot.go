// SPDX-License-Identifier: MIT

package rtc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/internal/types"
)

const (
	// defaultAnswerWait is how long the interviewer waits for the candidate
	// to answer before moving to the next question.
	defaultAnswerWait = 45 * time.Second
	// statusWriteAttempts bounds retries of the interviewing/completed
	// status writes.
	statusWriteAttempts = 3
	defaultStatusRetry  = time.Second
)

// Bot is the interviewer. It joins a room when the candidate arrives, marks
// the session interviewing, walks the question list, records the transcript,
// and marks the session completed before leaving. If the candidate drops
// out mid-interview the session is marked disconnected instead.
type Bot struct {
	gateway *Gateway
	store   session.Store
	logger  zerolog.Logger

	// AnswerWait and StatusRetryDelay are tunable for tests.
	AnswerWait       time.Duration
	StatusRetryDelay time.Duration

	mu     sync.Mutex
	active map[string]bool
	wg     sync.WaitGroup
}

// NewBot wires a bot into the gateway's candidate-joined hook.
func NewBot(g *Gateway, store session.Store) *Bot {
	b := &Bot{
		gateway:          g,
		store:            store,
		logger:           log.WithComponent("rtc.bot"),
		AnswerWait:       defaultAnswerWait,
		StatusRetryDelay: defaultStatusRetry,
		active:           make(map[string]bool),
	}
	g.OnCandidateJoined(b.roomLive)
	return b
}

// Wait blocks until every running interview goroutine has finished.
func (b *Bot) Wait() { b.wg.Wait() }

func (b *Bot) roomLive(roomName string) {
	b.mu.Lock()
	if b.active[roomName] {
		b.mu.Unlock()
		return
	}
	b.active[roomName] = true
	b.wg.Add(1)
	b.mu.Unlock()

	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		delete(b.active, roomName)
		b.mu.Unlock()
	}()

	sess, err := b.sessionByRoom(roomName)
	if err != nil {
		b.logger.Warn().Err(err).Str("room", roomName).
			Str("event", "bot.session_lookup_failed").Msg("no session for room")
		return
	}
	if sess.Status.IsTerminal() {
		b.logger.Info().Str("session_id", sess.ID).Str("status", string(sess.Status)).
			Str("event", "bot.session_already_over").Msg("not joining a finished session")
		return
	}

	lp, err := b.gateway.JoinLocal(roomName, IdentityInterviewer)
	if err != nil {
		b.logger.Warn().Err(err).Str("room", roomName).
			Str("event", "bot.join_failed").Msg("could not join room")
		return
	}
	defer lp.Leave()

	b.conduct(sess, lp)
}

func (b *Bot) sessionByRoom(roomName string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	all, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.RoomName == roomName {
			return s, nil
		}
	}
	return nil, session.ErrNotFound
}

// conduct runs the interview: greeting, one question at a time with a
// bounded wait for each answer, then the closing status write.
func (b *Bot) conduct(sess *session.Session, lp *LocalParticipant) {
	logger := b.logger.With().Str("session_id", sess.ID).Str("room", sess.RoomName).Logger()

	if err := b.setStatus(sess.ID, types.StatusInterviewing); err != nil {
		logger.Error().Err(err).Str("event", "bot.status_write_failed").
			Msg("could not mark session interviewing")
		return
	}
	logger.Info().Str("event", "bot.interview_started").
		Int("questions", len(sess.Questions)).Msg("interview started")

	b.say(sess.ID, lp, "Hello "+sess.CandidateName+
		", I'm your interviewer today. Let's begin.")

	for i, q := range sess.Questions {
		b.say(sess.ID, lp, q.Text)
		answered, gone := b.awaitAnswer(sess.ID, lp)
		if gone {
			logger.Warn().Int("question", i+1).Str("event", "bot.candidate_left").
				Msg("candidate left mid-interview")
			if err := b.setStatus(sess.ID, types.StatusDisconnected); err != nil {
				logger.Error().Err(err).Str("event", "bot.status_write_failed").
					Msg("could not mark session disconnected")
			}
			return
		}
		if !answered {
			logger.Info().Int("question", i+1).Str("event", "bot.answer_timeout").
				Msg("moving on without an answer")
		}
	}

	b.say(sess.ID, lp, "That was my last question. Thank you for your time, "+
		sess.CandidateName+". Your report will be sent shortly.")

	if err := b.setStatus(sess.ID, types.StatusCompleted); err != nil {
		logger.Error().Err(err).Str("event", "bot.status_write_failed").
			Msg("could not mark session completed")
		return
	}
	logger.Info().Str("event", "bot.interview_completed").Msg("interview completed")
}

// awaitAnswer waits for a candidate transcript, the candidate leaving, or
// the answer window expiring. gone reports the candidate left the room.
func (b *Bot) awaitAnswer(sessionID string, lp *LocalParticipant) (answered, gone bool) {
	timer := time.NewTimer(b.AnswerWait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-lp.Events():
			if !ok {
				return false, true
			}
			switch e := ev.(type) {
			case TranscriptEvent:
				if e.Identity == IdentityCandidate {
					b.record(sessionID, IdentityCandidate, e.Text)
					return true, false
				}
			case ParticipantDisconnectedEvent:
				if e.Identity == IdentityCandidate {
					return false, true
				}
			}
		case <-timer.C:
			return false, false
		}
	}
}

func (b *Bot) say(sessionID string, lp *LocalParticipant, text string) {
	lp.Say(text)
	b.record(sessionID, IdentityInterviewer, text)
}

func (b *Bot) record(sessionID, speaker, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := b.store.Update(ctx, sessionID, func(s *session.Session) error {
		s.AppendTranscript(speaker, text, time.Now().UTC())
		return nil
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("session_id", sessionID).
			Str("event", "bot.transcript_write_failed").Msg("transcript entry lost")
	}
}

// setStatus persists a status transition, retrying transient store failures.
// An invalid transition is final and never retried.
func (b *Bot) setStatus(sessionID string, status types.SessionStatus) error {
	var last error
	for attempt := 1; attempt <= statusWriteAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := b.store.Update(ctx, sessionID, func(s *session.Session) error {
			return s.TransitionTo(status, time.Now().UTC())
		})
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, session.ErrInvalidTransition) {
			return err
		}
		last = err
		if attempt < statusWriteAttempts {
			time.Sleep(b.StatusRetryDelay)
		}
	}
	return last
}
