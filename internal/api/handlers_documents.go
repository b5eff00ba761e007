// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/voxhire/voxhire/internal/documents"
	"github.com/voxhire/voxhire/internal/log"
)

// handleUpload accepts the jd_file/resume_file multipart pair, extracts
// both texts concurrently, and returns them in full.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.deps.Documents.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	jd, err := formFile(r, "jd_file", maxBytes)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "jd_file: "+err.Error())
		return
	}
	resume, err := formFile(r, "resume_file", maxBytes)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "resume_file: "+err.Error())
		return
	}

	jdText, resumeText, err := s.deps.Documents.ExtractPair(r.Context(), jd, resume)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, documents.ErrUnsupportedFormat) &&
			!errors.Is(err, documents.ErrTooLarge) &&
			!errors.Is(err, documents.ErrEmpty) {
			status = http.StatusInternalServerError
		}
		log.FromContext(r.Context()).Warn().Err(err).
			Str("event", "api.extract_failed").Msg("document extraction failed")
		respondError(w, r, status, err.Error())
		return
	}

	respond(w, r, http.StatusOK, "", map[string]any{
		"jd_full":     jdText,
		"resume_full": resumeText,
	})
}

func formFile(r *http.Request, field string, maxBytes int64) (documents.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return documents.File{}, errors.New("file is required")
	}
	defer func() { _ = file.Close() }()

	content, err := readAllLimited(file, maxBytes)
	if err != nil {
		return documents.File{}, err
	}
	return documents.File{Name: header.Filename, Content: content}, nil
}

func readAllLimited(f multipart.File, maxBytes int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, errors.New("could not read file")
	}
	if int64(len(content)) > maxBytes {
		return nil, documents.ErrTooLarge
	}
	return content, nil
}

type textPairRequest struct {
	JDText       string `json:"jd_text"`
	ResumeText   string `json:"resume_text"`
	NumQuestions int    `json:"num_questions"`
}

func (s *Server) sanitizedTextPair(w http.ResponseWriter, r *http.Request) (textPairRequest, bool) {
	var req textPairRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}

	var err error
	if req.JDText, err = documents.SanitizeText(req.JDText, documents.MaxTextLen); err != nil {
		respondError(w, r, http.StatusBadRequest, "jd_text: "+err.Error())
		return req, false
	}
	if req.ResumeText, err = documents.SanitizeText(req.ResumeText, documents.MaxTextLen); err != nil {
		respondError(w, r, http.StatusBadRequest, "resume_text: "+err.Error())
		return req, false
	}
	if req.JDText == "" || req.ResumeText == "" {
		respondError(w, r, http.StatusBadRequest, "jd_text and resume_text are required")
		return req, false
	}
	return req, true
}

// handleAnalyze runs the match analysis. The analysis service degrades to
// its keyword heuristic internally, so this never fails on LLM trouble.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.sanitizedTextPair(w, r)
	if !ok {
		return
	}

	result := s.deps.Analysis.AnalyzeDocuments(r.Context(), req.JDText, req.ResumeText)
	respond(w, r, http.StatusOK, "", map[string]any{"analysis": result})
}

// handleGenerateQuestions produces the ordered question list.
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	req, ok := s.sanitizedTextPair(w, r)
	if !ok {
		return
	}

	n := req.NumQuestions
	if n == 0 {
		n = defaultNumQuestions
	}
	if n < 1 || n > maxQuestions {
		respondError(w, r, http.StatusBadRequest, "num_questions must be between 1 and 20")
		return
	}

	questions := s.deps.Analysis.GenerateQuestions(r.Context(), req.JDText, req.ResumeText, n)
	respond(w, r, http.StatusOK, "", map[string]any{"questions": questions})
}
