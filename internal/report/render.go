// SPDX-License-Identifier: MIT

// Package report renders interview assessment reports as PDF and delivers
// them to candidates over SMTP.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/voxhire/voxhire/internal/session"
)

// ErrNoData is returned when a session has neither questions nor analysis,
// so there is nothing to report on.
var ErrNoData = errors.New("report: no interview data recorded")

// ReportFilename is the canonical file name for a session's report.
func ReportFilename(sessionID string) string {
	return fmt.Sprintf("interview_report_%s.pdf", sessionID)
}

// Render builds the assessment report PDF for a session.
func Render(sess *session.Session) ([]byte, error) {
	if len(sess.Questions) == 0 && sess.Analysis == nil {
		return nil, ErrNoData
	}

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Interview Assessment Report", true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.SetTextColor(20, 40, 90)
	doc.CellFormat(0, 14, "Interview Assessment Report", "", 1, "C", false, 0, "")
	doc.Ln(4)

	heading(doc, "Candidate Information")
	doc.SetFillColor(235, 235, 235)
	rows := [][2]string{
		{"Candidate Name", sess.CandidateName},
		{"Position Applied", sess.Position},
		{"Email", sess.CandidateEmail},
		{"Session ID", sess.ID},
		{"Interview Date", formatTime(sess.CreatedAt)},
		{"Last Update", formatTime(sess.StatusChangedAt)},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(55, 8, row[0]+":", "1", 0, "L", true, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	if a := sess.Analysis; a != nil {
		heading(doc, "Document Analysis")
		labelled(doc, tr, "Match Score", fmt.Sprintf("%d/10", a.MatchScore))
		labelled(doc, tr, "Key Skills", strings.Join(a.KeySkills, ", "))
		labelled(doc, tr, "Gaps", strings.Join(a.Gaps, ", "))
		labelled(doc, tr, "Assessment", a.Assessment)
		doc.Ln(4)
	}

	if len(sess.Questions) > 0 {
		heading(doc, "Interview Questions")
		for i, q := range sess.Questions {
			doc.SetFont("Helvetica", "B", 12)
			doc.CellFormat(0, 8, fmt.Sprintf("Question %d:", i+1), "", 1, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 11)
			doc.MultiCell(0, 6, tr(q.Text), "", "L", false)
			doc.Ln(2)
		}
		doc.Ln(2)
	}

	if len(sess.Transcript) > 0 {
		heading(doc, "Interview Transcript")
		for _, entry := range sess.Transcript {
			text := strings.TrimSpace(entry.Text)
			if text == "" {
				continue
			}
			doc.SetFont("Helvetica", "B", 11)
			doc.CellFormat(0, 6, tr(speakerLabel(entry.Speaker)+":"), "", 1, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 11)
			doc.MultiCell(0, 6, tr(text), "", "L", false)
			doc.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.SetTextColor(0, 90, 50)
	doc.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(1)
}

func labelled(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(40, 7, label+":", "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 7, tr(value), "", "L", false)
}

func speakerLabel(speaker string) string {
	switch speaker {
	case "agent":
		return "Interviewer"
	case "candidate":
		return "Candidate"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(speaker[:1]) + speaker[1:]
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
