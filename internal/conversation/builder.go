// Package conversation flattens a thread's description and comment
// history into a single normalized document for AI analysis.
package conversation

import (
	"fmt"
	"strings"

	"github.com/lindesk/internal/textclean"
	"github.com/lindesk/pkg/models"
)

const notesBanner = "**ENGINEERING SUMMARY NEEDED - CONTAINS INTERNAL NOTES**"

const noteSummaryLimit = 150

// Build merges the thread description and comments into one document.
// Internal notes get their own heading and, unless suppressed, a banner
// with truncated bullet summaries is prepended so the diagnosis buried
// in agent notes surfaces first.
//
// Comment labels are numbered by original position in the source
// sequence, including skipped entries, so "Comment 3" always refers to
// the third entry the source system returned.
func Build(thread *models.Thread, suppressNotesBanner bool) string {
	var doc strings.Builder

	description := textclean.Clean(thread.Description)
	doc.WriteString("**Initial Description:**\n")
	doc.WriteString(description)
	doc.WriteString("\n\n")

	hasInternalNotes := false
	var notesSummary strings.Builder
	notesSummary.WriteString("**Internal Notes Summary:**\n")

	if len(thread.Comments) > 0 {
		doc.WriteString("**Conversation History:**\n\n")

		for i, comment := range thread.Comments {
			body := textclean.Clean(comment.Body)

			// Zendesk duplicates the description as the first comment.
			if i == 0 && body == description {
				continue
			}
			if strings.TrimSpace(body) == "" {
				continue
			}

			if !comment.Public {
				hasInternalNotes = true
				fmt.Fprintf(&doc, "**Internal Note %d:**\n%s\n\n", i+1, body)
				notesSummary.WriteString("- " + truncate(body, noteSummaryLimit) + "\n\n")
			} else {
				fmt.Fprintf(&doc, "**Comment %d:**\n%s\n\n", i+1, body)
			}
		}
	}

	out := doc.String()
	if hasInternalNotes && !suppressNotesBanner {
		out = notesBanner + "\n\n" + notesSummary.String() + "\n" + out
	}

	return strings.TrimSpace(out)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
