// Package textclean strips email signatures, legal disclaimers, and
// footer boilerplate from raw ticket text before it is fed to analysis.
package textclean

import (
	"regexp"
	"strings"
)

// Signature boundary patterns: confidentiality notices and legal
// disclaimers. A match truncates the text at the match start.
var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)This email and any files.+are confidential`),
	regexp.MustCompile(`(?is)This email and any attachments.+intended only for`),
	regexp.MustCompile(`(?is)\bconfidential\b.+\bprivileged\b`),
	regexp.MustCompile(`(?is)Disclaimer:?.*`),
	regexp.MustCompile(`(?is)The information contained in this.+email is confidential`),
	regexp.MustCompile(`(?is)This message\s+\(.+\)\s+contains confidential information`),
	regexp.MustCompile(`(?i)The contents of this email are confidential`),
	regexp.MustCompile(`(?is)NOTICE:.+This e-mail message is intended only for`),
	regexp.MustCompile(`(?i)This communication is intended only for use`),
	regexp.MustCompile(`(?is)This email is sent by a.+group entity`),
	regexp.MustCompile(`(?i)The information contained in this email`),
	regexp.MustCompile(`(?is)IMPORTANT NOTICE:.+This message is intended for`),
	regexp.MustCompile(`(?i)Activity and use of our email system is monitored`),
}

// Delimiter patterns: signature separators and common closings. Honored
// only when the match falls in the second half of the remaining text,
// so short replies that are all closing don't get wiped out.
var delimiterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^-{3,}$`),
	regexp.MustCompile(`(?m)^_{3,}$`),
	regexp.MustCompile(`(?m)^\*{3,}$`),
	regexp.MustCompile(`(?m)^[ \t]*--[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*\|[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*\+[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*=[ \t]*$`),
	regexp.MustCompile(`(?im)^[ \t]*Best regards,`),
	regexp.MustCompile(`(?im)^[ \t]*Regards,`),
	regexp.MustCompile(`(?im)^[ \t]*Thank you,`),
	regexp.MustCompile(`(?im)^[ \t]*Thanks,`),
	regexp.MustCompile(`(?im)^[ \t]*Cheers,`),
	regexp.MustCompile(`(?im)^[ \t]*Sincerely,`),
}

// Line-level metadata and footer heuristics.
var footerLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^sent from`),
	regexp.MustCompile(`(?i)^from:`),
	regexp.MustCompile(`(?i)^to:`),
	regexp.MustCompile(`(?i)^cc:`),
	regexp.MustCompile(`(?i)^bcc:`),
	regexp.MustCompile(`(?i)^subject:`),
	regexp.MustCompile(`(?i)^date:`),
	regexp.MustCompile(`(?i)^\[cid:`),
	regexp.MustCompile(`(?i)^\[image:`),
	regexp.MustCompile(`(?i)^registration no\.`),
	regexp.MustCompile(`(?i)^registered in`),
	regexp.MustCompile(`(?i)^registered office`),
	regexp.MustCompile(`(?i)^This is an automated`),
	regexp.MustCompile(`(?i)^On .+ wrote:$`),
	regexp.MustCompile(`^[<>\-_=]{3,}$`),
}

// Clean removes signatures, disclaimers, and footer lines from raw text.
// Signature truncation runs before delimiter truncation: a disclaimer
// match anywhere wins, while delimiters only count in the second half of
// whatever is left. Empty input returns "".
func Clean(text string) string {
	if text == "" {
		return ""
	}

	// Truncate at the earliest signature match across all patterns, so a
	// broad pattern matching mid-disclaimer cannot leave the disclaimer's
	// opening words behind.
	cut := -1
	for _, pattern := range signaturePatterns {
		if loc := pattern.FindStringIndex(text); loc != nil && (cut < 0 || loc[0] < cut) {
			cut = loc[0]
		}
	}
	if cut >= 0 {
		text = strings.TrimSpace(text[:cut])
	}

	for _, pattern := range delimiterPatterns {
		if loc := pattern.FindStringIndex(text); loc != nil && loc[0] > len(text)/2 {
			text = strings.TrimSpace(text[:loc[0]])
		}
	}

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if isFooterLine(strings.TrimSpace(line)) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func isFooterLine(line string) bool {
	for _, pattern := range footerLinePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}
