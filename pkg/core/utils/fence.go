package utils

import "strings"

// StripCodeFence removes one outer Markdown code fence, with or without an
// info string such as ```json, so documents pasted from notes or chat decode.
// Input without a fence is returned trimmed.
func StripCodeFence(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}
	body := strings.TrimSuffix(strings.TrimPrefix(cleaned, "```"), "```")
	// Drop the info string on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}
