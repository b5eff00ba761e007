// SPDX-License-Identifier: MIT

package analysis

import (
	"fmt"
	"unicode/utf8"
)

const analysisPromptTmpl = `Analyze the following job description and resume to determine how well the candidate matches the position.

Job Description:
%s

Resume:
%s

Please provide:
1. A match score from 1-10 (10 being perfect match)
2. Key skills that match between JD and resume
3. Any gaps or areas of concern
4. Overall assessment

Format as JSON with keys: match_score, key_skills (array), gaps (array), assessment (string)`

const questionSystemPrompt = `You are an expert technical interviewer with years of experience conducting interviews for software development and technical roles. Your task is to generate highly relevant, specific interview questions based on the candidate's resume and the job description provided.`

const questionPromptTmpl = `Analyze the following job description and candidate resume carefully, then generate %d targeted interview questions.

JOB DESCRIPTION:
%s

CANDIDATE RESUME:
%s

INSTRUCTIONS:
Generate %d thoughtful, specific interview questions that directly relate to:
1. Skills and technologies mentioned in both the job description and resume
2. Experience levels required by the JD and demonstrated in the resume
3. Specific projects or achievements from the resume that align with JD requirements
4. Gaps between JD requirements and resume experience (if any)
5. Problem-solving approaches relevant to the role
6. Technical concepts and methodologies from the JD that the candidate should know

REQUIREMENTS:
- Questions must reference specific skills, tools, or experiences from the resume/JD
- Make questions conversational and natural for a professional interview
- Include follow-up potential in questions
- Avoid generic questions; be specific to this candidate and role
- Balance technical and behavioral questions
- Ensure questions assess real job requirements, not just resume keywords
- ALL QUESTIONS MUST BE IN ENGLISH ONLY

FORMAT: Return ONLY a numbered list:
1. Question one?
2. Question two?
3. Continue exactly like this...

No introductions, explanations, or extra text.`

func analysisPrompt(jdText, resumeText string) string {
	return fmt.Sprintf(analysisPromptTmpl, truncate(jdText, 2000), truncate(resumeText, 2000))
}

func questionPrompt(jdText, resumeText string, numQuestions int) string {
	return fmt.Sprintf(questionPromptTmpl, numQuestions, truncate(jdText, 4000), truncate(resumeText, 4000), numQuestions)
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
