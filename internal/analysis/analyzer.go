// SPDX-License-Identifier: MIT

package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/session"
)

// Service runs document analysis and question generation. It never fails:
// LLM errors degrade to deterministic local results so the setup pipeline
// can always proceed.
type Service struct {
	llm    *ChatClient
	logger zerolog.Logger
}

// NewService builds the analysis service from the LLM configuration.
func NewService(cfg config.LLMConfig) *Service {
	return &Service{
		llm:    NewChatClient(cfg),
		logger: log.WithComponent("analysis"),
	}
}

// AnalyzeDocuments scores the resume against the job description.
func (s *Service) AnalyzeDocuments(ctx context.Context, jdText, resumeText string) *session.Analysis {
	if !s.llm.Configured() {
		s.logger.Warn().Str("event", "analysis.fallback").Msg("llm not configured, using basic analysis")
		metrics.IncLLMRequest("analysis", "fallback")
		return basicAnalysis(jdText, resumeText)
	}

	start := time.Now()
	content, err := s.llm.Complete(ctx, "", analysisPrompt(jdText, resumeText))
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "analysis.fallback").Msg("llm analysis failed, using basic analysis")
		metrics.IncLLMRequest("analysis", "error")
		return basicAnalysis(jdText, resumeText)
	}

	metrics.IncLLMRequest("analysis", "success")
	metrics.ObserveLLMRequest("analysis", time.Since(start).Seconds())
	return s.parseAnalysisResponse(content)
}

// jsonFenceRe extracts the payload of a ```json ... ``` markdown fence.
var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// parseAnalysisResponse decodes the model output, tolerating markdown
// fences and missing keys. Unparseable output becomes a plain-text
// assessment rather than an error.
func (s *Service) parseAnalysisResponse(responseText string) *session.Analysis {
	text := responseText
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var parsed struct {
		MatchScore *int     `json:"match_score"`
		KeySkills  []string `json:"key_skills"`
		Gaps       []string `json:"gaps"`
		Assessment string   `json:"assessment"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		s.logger.Warn().Str("event", "analysis.parse").Msg("llm response is not valid JSON, keeping it as the assessment")
		return &session.Analysis{
			MatchScore: 7,
			KeySkills:  []string{"Communication", "Problem Solving"},
			Gaps:       []string{"Unable to parse detailed analysis"},
			Assessment: responseText,
		}
	}

	out := &session.Analysis{
		MatchScore: 7,
		KeySkills:  parsed.KeySkills,
		Gaps:       parsed.Gaps,
		Assessment: parsed.Assessment,
	}
	if parsed.MatchScore != nil {
		out.MatchScore = *parsed.MatchScore
	}
	if out.KeySkills == nil {
		out.KeySkills = []string{}
	}
	if out.Gaps == nil {
		out.Gaps = []string{}
	}
	if out.Assessment == "" {
		out.Assessment = responseText
	}
	return out
}

var titleCaser = cases.Title(language.English)

// basicAnalysis is the LLM-free result: shared keywords between the two
// documents stand in for matched skills.
func basicAnalysis(jdText, resumeText string) *session.Analysis {
	skills := sharedKeywords(jdText, resumeText, 5)
	if len(skills) == 0 {
		skills = []string{"Communication", "Problem Solving"}
	}
	return &session.Analysis{
		MatchScore: 7,
		KeySkills:  skills,
		Gaps:       []string{"Specific technical skills may need verification"},
		Assessment: "Basic analysis completed - detailed AI analysis not available",
	}
}

var keywordStopwords = map[string]struct{}{
	"with": {}, "from": {}, "your": {}, "will": {}, "have": {}, "that": {},
	"this": {}, "work": {}, "team": {}, "years": {}, "their": {}, "them": {},
	"they": {}, "about": {}, "more": {}, "role": {}, "skills": {},
	"experience": {}, "required": {}, "must": {}, "strong": {}, "using": {},
}

// sharedKeywords returns up to limit words that appear in both texts,
// ranked by resume frequency, title-cased for display.
func sharedKeywords(jdText, resumeText string, limit int) []string {
	tokenize := func(text string) map[string]int {
		counts := make(map[string]int)
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return (r < 'a' || r > 'z') && (r < '0' || r > '9')
		}) {
			if len(word) < 4 {
				continue
			}
			if _, stop := keywordStopwords[word]; stop {
				continue
			}
			counts[word]++
		}
		return counts
	}

	jdWords := tokenize(jdText)
	resumeWords := tokenize(resumeText)

	type ranked struct {
		word  string
		count int
	}
	var shared []ranked
	for word, count := range resumeWords {
		if _, ok := jdWords[word]; ok {
			shared = append(shared, ranked{word, count})
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		if shared[i].count != shared[j].count {
			return shared[i].count > shared[j].count
		}
		return shared[i].word < shared[j].word
	})

	if len(shared) > limit {
		shared = shared[:limit]
	}
	out := make([]string, 0, len(shared))
	for _, r := range shared {
		out = append(out, titleCaser.String(r.word))
	}
	return out
}
