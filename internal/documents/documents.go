// SPDX-License-Identifier: MIT

// Package documents validates uploaded hiring documents and extracts their
// plain text for analysis. Supported formats are txt, pdf, and docx.
package documents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/voxhire/voxhire/internal/log"
)

var (
	// ErrUnsupportedFormat is returned for file extensions outside txt/pdf/docx.
	ErrUnsupportedFormat = errors.New("documents: unsupported file format")
	// ErrTooLarge is returned when a file exceeds the upload size limit.
	ErrTooLarge = errors.New("documents: file exceeds size limit")
	// ErrEmpty is returned when extraction yields no readable text.
	ErrEmpty = errors.New("documents: no readable text")
)

// File is one uploaded document.
type File struct {
	Name    string
	Content []byte
}

// Processor extracts text from uploaded files within a size budget.
type Processor struct {
	maxBytes int64
	logger   zerolog.Logger
}

// NewProcessor builds a processor. maxBytes <= 0 selects the 10 MiB default.
func NewProcessor(maxBytes int64) *Processor {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Processor{
		maxBytes: maxBytes,
		logger:   log.WithComponent("documents"),
	}
}

// MaxBytes reports the per-file size limit.
func (p *Processor) MaxBytes() int64 { return p.maxBytes }

// Extract pulls plain text out of one uploaded file.
func (p *Processor) Extract(f File) (string, error) {
	if int64(len(f.Content)) > p.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d",
			ErrTooLarge, SanitizeFilename(f.Name), len(f.Content), p.maxBytes)
	}

	var text string
	var err error
	switch ext := strings.ToLower(filepath.Ext(f.Name)); ext {
	case ".txt":
		text = strings.ToValidUTF8(string(f.Content), "")
	case ".pdf":
		text, err = extractPDF(f.Content)
	case ".docx":
		text, err = extractDocx(f.Content)
	default:
		return "", fmt.Errorf("%w: %q (supported: txt, pdf, docx)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, SanitizeFilename(f.Name))
	}
	return text, nil
}

// ExtractPair processes the job description and resume concurrently and
// returns both texts. Either file failing fails the pair.
func (p *Processor) ExtractPair(ctx context.Context, jd, resume File) (string, string, error) {
	var jdText, resumeText string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		jdText, err = p.Extract(jd)
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		resumeText, err = p.Extract(resume)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	p.logger.Debug().
		Int("jd_chars", len(jdText)).
		Int("resume_chars", len(resumeText)).
		Str("event", "documents.extracted").
		Msg("extracted upload pair")
	return jdText, resumeText, nil
}
