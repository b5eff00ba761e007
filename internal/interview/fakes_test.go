// SPDX-License-Identifier: MIT

package interview

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/types"
)

// --- fake clock -------------------------------------------------------------

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	delay   time.Duration
	fn      func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock is a manually advanced clock. Advance fires due timers
// synchronously, earliest first.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	// delays logs every scheduled duration, fired or not.
	delays []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), delay: d, fn: fn}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.when.After(c.now) {
			c.now = next.when
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// pending counts timers that are scheduled and neither fired nor stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// pendingWithDelay counts live timers that were scheduled with exactly d.
func (c *fakeClock) pendingWithDelay(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.delay == d {
			n++
		}
	}
	return n
}

// scheduledDelays returns every delay passed to AfterFunc so far.
func (c *fakeClock) scheduledDelays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

// --- recording presenter ------------------------------------------------------

type notice struct {
	level   NoticeLevel
	message string
}

type recordingPresenter struct {
	mu         sync.Mutex
	states     []types.ConnectionState
	progress   []int
	labels     []string
	notices    []notice
	stateCh    chan types.ConnectionState
	resultCh   chan Outcome
	resultsLog []Outcome
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		stateCh:  make(chan types.ConnectionState, 64),
		resultCh: make(chan Outcome, 4),
	}
}

func (p *recordingPresenter) StateChanged(_, next types.ConnectionState) {
	p.mu.Lock()
	p.states = append(p.states, next)
	p.mu.Unlock()
	p.stateCh <- next
}

func (p *recordingPresenter) Progress(percent int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, percent)
	p.labels = append(p.labels, label)
}

func (p *recordingPresenter) Notice(level NoticeLevel, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice{level: level, message: message})
}

func (p *recordingPresenter) Results(o Outcome) {
	p.mu.Lock()
	p.resultsLog = append(p.resultsLog, o)
	p.mu.Unlock()
	p.resultCh <- o
}

func (p *recordingPresenter) waitState(t *testing.T, want types.ConnectionState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-p.stateCh:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (p *recordingPresenter) waitResult(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-p.resultCh:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for results view")
		return Outcome{}
	}
}

func (p *recordingPresenter) noticeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notices)
}

func (p *recordingPresenter) stateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

func (p *recordingPresenter) hasNoticeContaining(sub string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.notices {
		if strings.Contains(n.message, sub) {
			return true
		}
	}
	return false
}

func (p *recordingPresenter) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resultsLog)
}

// --- fake backend --------------------------------------------------------------

type fakeBackend struct {
	mu sync.Mutex

	uploadErr    error
	analyzeErr   error
	questionsErr error
	createErr    error
	sendErr      error

	uploadCalls    int
	analyzeCalls   int
	questionsCalls int
	createCalls    int
	statusCalls    int
	updateCalls    int
	sendCalls      int
	downloadCalls  int

	questionCount int
	descriptor    *backend.SessionDescriptor

	// statusScript is consumed one entry per poll; the final entry repeats.
	statusScript []types.SessionStatus
	statusErrs   []error

	sendMessage string
	report      []byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		questionCount: 6,
		sendMessage:   "report sent",
		report:        []byte("%PDF-1.4 fake"),
	}
}

func (f *fakeBackend) Upload(context.Context, backend.Document, backend.Document) (*backend.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &backend.UploadResult{JDFull: "jd text", ResumeFull: "resume text"}, nil
}

func (f *fakeBackend) Analyze(context.Context, string, string) (*backend.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &backend.Analysis{MatchScore: 8, Assessment: "good fit"}, nil
}

func (f *fakeBackend) GenerateQuestions(_ context.Context, _, _ string, n int) ([]backend.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionsCalls++
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	if n <= 0 {
		n = f.questionCount
	}
	qs := make([]backend.Question, n)
	for i := range qs {
		qs[i] = backend.Question{ID: i + 1, Text: "question"}
	}
	return qs, nil
}

func (f *fakeBackend) CreateSession(_ context.Context, req backend.CreateSessionRequest) (*backend.SessionDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.descriptor != nil {
		return f.descriptor, nil
	}
	return &backend.SessionDescriptor{
		SessionID:     "11111111-2222-3333-4444-555555555555",
		CandidateName: req.CandidateName,
		Questions:     req.Questions,
		ServerURL:     "ws://rtc.test/rtc",
		Token:         "join-token",
		RoomName:      "interview_11111111",
		CreatedAt:     time.Now(),
	}, nil
}

func (f *fakeBackend) SessionStatus(context.Context, string) (types.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if len(f.statusErrs) > 0 {
		idx := i
		if idx >= len(f.statusErrs) {
			idx = len(f.statusErrs) - 1
		}
		if err := f.statusErrs[idx]; err != nil {
			return "", err
		}
	}
	if len(f.statusScript) == 0 {
		return types.StatusInterviewing, nil
	}
	idx := i
	if idx >= len(f.statusScript) {
		idx = len(f.statusScript) - 1
	}
	return f.statusScript[idx], nil
}

func (f *fakeBackend) UpdateStatus(context.Context, string, types.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return nil
}

func (f *fakeBackend) SendReport(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendMessage, nil
}

func (f *fakeBackend) DownloadReport(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	return f.report, nil
}

func (f *fakeBackend) calls() (upload, analyze, questions, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls, f.analyzeCalls, f.questionsCalls, f.createCalls
}

func (f *fakeBackend) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeBackend) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// --- fake transport --------------------------------------------------------------

// fakeSession is an in-memory RoomSession tests script directly.
type fakeSession struct {
	mu         sync.Mutex
	events     chan rtc.Event
	closed     bool
	publishErr error
	audioUp    bool
	unpubCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan rtc.Event, 64)}
}

func (s *fakeSession) PublishAudio(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publishErr != nil {
		return s.publishErr
	}
	s.audioUp = true
	return nil
}

func (s *fakeSession) UnpublishAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unpubCalls++
	s.audioUp = false
	return nil
}

func (s *fakeSession) LocalAudioActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioUp
}

func (s *fakeSession) Events() <-chan rtc.Event { return s.events }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emit pushes a room event, ignoring a closed session.
func (s *fakeSession) emit(ev rtc.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// fakeDialer scripts one outcome per attempt; attempts beyond the script
// reuse the last entry. A nil script entry error yields a fresh session.
type dialScript struct {
	err  error
	hang bool // block until ctx is cancelled
}

type fakeDialer struct {
	mu       sync.Mutex
	script   []dialScript
	sessions []*fakeSession
	calls    int
}

func (d *fakeDialer) DialRoom(ctx context.Context, _, _, _, _ string) (rtc.RoomSession, error) {
	d.mu.Lock()
	i := d.calls
	d.calls++
	var step dialScript
	if len(d.script) > 0 {
		idx := i
		if idx >= len(d.script) {
			idx = len(d.script) - 1
		}
		step = d.script[idx]
	}
	d.mu.Unlock()

	if step.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if step.err != nil {
		return nil, step.err
	}

	s := newFakeSession()
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) lastSession() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

// testDescriptor returns a descriptor that passes connector validation.
func testDescriptor() *backend.SessionDescriptor {
	return &backend.SessionDescriptor{
		SessionID:     "11111111-2222-3333-4444-555555555555",
		CandidateName: "Jordan Reyes",
		Questions:     []backend.Question{{ID: 1, Text: "Tell me about yourself."}},
		ServerURL:     "ws://rtc.test/rtc",
		Token:         "join-token",
		RoomName:      "interview_11111111",
		CreatedAt:     time.Now(),
	}
}

// testTimeouts keeps every production ratio but uses values that are easy
// to tell apart in the fake clock's delay log.
func testTimeouts() Timeouts {
	return Timeouts{
		Upload:        time.Minute,
		Analyze:       time.Minute,
		Questions:     time.Minute,
		CreateSession: time.Minute,
		Probe:         time.Minute,
		Connect:       30 * time.Second,
		Publish:       15 * time.Second,
		VerifyDelay:   500 * time.Millisecond,
		RetryBase:     2 * time.Second,
		PollInterval:  time.Second,
		PollRequest:   time.Minute,
		ResultsDelay:  100 * time.Millisecond,
	}
}
