package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \n  ",
			expected: "",
		},
		{
			name:     "plain text untouched",
			input:    "The export job fails with a 500 error.",
			expected: "The export job fails with a 500 error.",
		},
		{
			name:     "confidentiality disclaimer truncated",
			input:    "Please help with the login problem.\n\nThis email and any files transmitted with it are confidential and intended solely for the addressee.",
			expected: "Please help with the login problem.",
		},
		{
			name:     "disclaimer heading truncated",
			input:    "The API returns 403 for our service account.\n\nDisclaimer: the contents of this message are private.",
			expected: "The API returns 403 for our service account.",
		},
		{
			name:     "closing in second half truncated",
			input:    "The server keeps returning a 500 error whenever we upload files larger than ten megabytes through the dashboard.\n\nRegards,\nJohn",
			expected: "The server keeps returning a 500 error whenever we upload files larger than ten megabytes through the dashboard.",
		},
		{
			name:     "short reply that is all closing survives",
			input:    "Thanks,\nJane",
			expected: "Thanks,\nJane",
		},
		{
			name:     "footer lines dropped",
			input:    "The issue still persists after the update.\nSent from my iPhone",
			expected: "The issue still persists after the update.",
		},
		{
			name:     "quoted reply headers dropped",
			input:    "Still broken on our side.\nFrom: support@example.com\nTo: customer@example.com",
			expected: "Still broken on our side.",
		},
		{
			name:     "embedded image markers dropped",
			input:    "See the attached screenshot.\n[cid:image001.png@01D9]",
			expected: "See the attached screenshot.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestCleanExcludesEverythingAfterDisclaimer(t *testing.T) {
	body := "We cannot log in since this morning."
	disclaimer := "The contents of this email are confidential and legally privileged."
	out := Clean(body + "\n\n" + disclaimer + "\n\nMore trailing boilerplate.")

	assert.Equal(t, body, out)
	assert.False(t, strings.Contains(out, "confidential"))
	assert.False(t, strings.Contains(out, "boilerplate"))
}

func TestCleanSignatureBeforeDelimiter(t *testing.T) {
	// The disclaimer match must win even when a delimiter appears
	// earlier in the text.
	input := "Our webhook deliveries stopped on Friday and the retry queue is filling up quickly now.\n\nBest regards,\nSam\n\nThe information contained in this email is private."
	out := Clean(input)

	assert.Equal(t, "Our webhook deliveries stopped on Friday and the retry queue is filling up quickly now.", out)
}
