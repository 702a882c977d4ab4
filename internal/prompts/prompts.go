// Package prompts builds the analysis prompts sent to the AI backends.
package prompts

import (
	"fmt"
	"strings"

	"github.com/lindesk/pkg/models"
)

const analysisInstructions = `Analyze this complete support ticket conversation and create a comprehensive technical summary for our engineering team. Pay special attention to any internal notes (marked as 'Internal Note') as they often contain important technical context from our support team.

Please provide a very detailed, well-structured analysis that includes:
- Clear problem statement
- Detailed reproduction steps (numbered list)
- Technical investigation findings
- Environment details
- Impact assessment

Return only a JSON object with these fields:

{
  "title": "Clear, concise technical title for the issue",
  "description": "Very detailed technical summary with proper formatting including:\n\n## Problem Summary\n[Brief overview]\n\n## Environment\n[Technical environment details]\n\n## Reproduction Steps\n1. Step one\n2. Step two\n3. Step three\n\n## Expected Behavior\n[What should happen]\n\n## Actual Behavior\n[What actually happens]\n\n## Impact\n[User/business impact]\n\n## Investigation Findings\n[Technical details discovered]\n\n## Internal Notes Summary\n[Summarize key points from internal notes]",
  "priority": "Low|Medium|High|Urgent",
  "complexity": 1-5,
  "components": ["TechnicalComponent1", "TechnicalComponent2"]
}`

// Analysis builds the JSON-schema prompt for the subprocess and direct
// LLM backends. A custom prompt, when supplied, is prefixed ahead of the
// default instructions.
func Analysis(thread *models.Thread, conversation, customPrompt string) string {
	var b strings.Builder
	if customPrompt != "" {
		b.WriteString(strings.TrimSpace(customPrompt))
		b.WriteString("\n\n")
	}
	b.WriteString(analysisInstructions)
	b.WriteString("\n\nTake your time to analyze thoroughly. Ticket #")
	b.WriteString(thread.ID)
	b.WriteString(": ")
	b.WriteString(thread.Subject)
	b.WriteString("\n\n")
	b.WriteString(conversation)
	return b.String()
}

// Question builds the narrative question for the search-backed poll
// backend, which answers in markdown rather than JSON.
func Question(thread *models.Thread, conversation, customPrompt string) string {
	intro := "Analyze this support ticket conversation and write a detailed technical summary for our engineering team, in markdown, starting with a single-line title as an H1 heading. Include a problem summary, reproduction steps, investigation findings, and recommended next steps."
	if customPrompt != "" {
		intro = strings.TrimSpace(customPrompt)
	}
	return fmt.Sprintf("%s\n\nTicket #%s: %s\n\n%s", intro, thread.ID, thread.Subject, conversation)
}
