// SPDX-License-Identifier: MIT

// interviewctl is the candidate-side CLI. "run" drives a full interview:
// form validation, the setup pipeline, the supervised realtime connection,
// and report download on completion. "status" and "sessions" query the
// coordination API directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/voxhire/voxhire/internal/backend"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/report"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	log.Configure(log.Config{
		Level:   envOr("INTERVIEWCTL_LOG_LEVEL", "warn"),
		Format:  "console",
		Service: "interviewctl",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "status":
		err = cmdStatus(ctx, os.Args[2:])
	case "sessions":
		err = cmdSessions(ctx, os.Args[2:])
	case "version":
		fmt.Printf("interviewctl %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: interviewctl <command> [flags]

commands:
  run        start and complete an interview
  status     show one session: interviewctl status [flags] <session-id>
  sessions   list all sessions
  version    print version and exit

run flags:
  --server URL      coordination API base URL (default http://localhost:8085)
  --name NAME       candidate name
  --email ADDR      candidate email
  --position TITLE  target position
  --jd FILE         job description document (pdf, docx, txt)
  --resume FILE     resume document (pdf, docx, txt)
  --questions N     number of interview questions (default 6)
  --token TOKEN     API bearer token, if the server requires one
  --out DIR         directory for the downloaded report (default .)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// dialerAdapter narrows *rtc.ClientSession to the rtc.RoomSession interface
// the orchestrator dials through.
type dialerAdapter struct {
	d *rtc.Dialer
}

func (a dialerAdapter) DialRoom(ctx context.Context, serverURL, roomName, token, identity string) (rtc.RoomSession, error) {
	return a.d.DialRoom(ctx, serverURL, roomName, token, identity)
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8085", "coordination API base URL")
	name := fs.String("name", "", "candidate name")
	email := fs.String("email", "", "candidate email")
	position := fs.String("position", "", "target position")
	jdPath := fs.String("jd", "", "job description file")
	resumePath := fs.String("resume", "", "resume file")
	questions := fs.Int("questions", 0, "number of interview questions (0 means server default)")
	token := fs.String("token", "", "API bearer token")
	outDir := fs.String("out", ".", "directory for the downloaded report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := interview.FormInput{
		Name:     *name,
		Email:    *email,
		Position: *position,
	}
	var err error
	if form.JD, err = readAttachment(*jdPath); err != nil {
		return fmt.Errorf("job description: %w", err)
	}
	if form.Resume, err = readAttachment(*resumePath); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	form, verdict := interview.ValidateForm(form, interview.DefaultMaxAttachmentBytes)
	if !verdict.Valid {
		for _, p := range verdict.Problems {
			fmt.Fprintln(os.Stderr, "  -", p)
		}
		return fmt.Errorf("the form is not ready to submit")
	}

	client := backend.NewWithOptions(*server, backend.Options{APIToken: *token})
	pres := newConsolePresenter(os.Stdout)

	ctl := interview.NewController(interview.ControllerOptions{
		Backend:       client,
		Dialer:        dialerAdapter{d: &rtc.Dialer{}},
		Probe:         rtc.StaticProbe{},
		Presenter:     pres,
		QuestionCount: *questions,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		ctl.Run(runCtx)
		close(done)
	}()

	ctl.Submit(form)

	var outcome interview.Outcome
	select {
	case outcome = <-pres.results:
	case <-ctx.Done():
		// Disconnect does not produce a results view, so give any
		// in-flight completion a moment and then abort.
		fmt.Fprintln(os.Stderr, "interrupted, disconnecting")
		ctl.Disconnect()
		select {
		case outcome = <-pres.results:
		case <-time.After(2 * time.Second):
			cancel()
			<-done
			return fmt.Errorf("interview aborted")
		}
	case <-pres.failed:
		cancel()
		<-done
		return fmt.Errorf("interview setup failed")
	}

	cancel()
	<-done

	if len(outcome.Report) > 0 {
		path := filepath.Join(*outDir, report.ReportFilename(outcome.SessionID))
		if err := os.WriteFile(path, outcome.Report, 0o600); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Printf("report saved to %s\n", path)
	}
	fmt.Printf("session %s finished with status %q\n", outcome.SessionID, outcome.Status)
	if outcome.Message != "" {
		fmt.Println(outcome.Message)
	}
	return nil
}

func readAttachment(path string) (*interview.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &interview.Attachment{Filename: filepath.Base(path), Content: content}, nil
}

func cmdStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8085", "coordination API base URL")
	token := fs.String("token", "", "API bearer token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: interviewctl status [flags] <session-id>")
	}

	client := backend.NewWithOptions(*server, backend.Options{APIToken: *token})
	info, err := client.Session(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id:\t%s\n", info.ID)
	fmt.Fprintf(w, "candidate:\t%s <%s>\n", info.CandidateName, info.CandidateEmail)
	fmt.Fprintf(w, "position:\t%s\n", info.Position)
	fmt.Fprintf(w, "status:\t%s\n", info.Status)
	fmt.Fprintf(w, "room:\t%s\n", info.RoomName)
	fmt.Fprintf(w, "created:\t%s\n", info.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "updated:\t%s\n", info.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return w.Flush()
}

func cmdSessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8085", "coordination API base URL")
	token := fs.String("token", "", "API bearer token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := backend.NewWithOptions(*server, backend.Options{APIToken: *token})
	sessions, err := client.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCANDIDATE\tPOSITION\tSTATUS\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.CandidateName, s.Position, s.Status,
			s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
