package workflowctx

import "strings"

const codeBlockPreviewLines = 10

// summarize extracts markdown headings and the first ten lines of each
// fenced code block from content, then hard-truncates to budget characters
// — the over-share reduction §4.4 applies to any prerequisite whose raw
// output exceeds its slice of the remaining token budget.
func summarize(content string, budget int) string {
	if budget <= 0 {
		return ""
	}

	var sb strings.Builder
	lines := strings.Split(content, "\n")

	inFence := false
	fenceLines := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				fenceLines = 0
				sb.WriteString(line)
				sb.WriteString("\n")
				continue
			}
			inFence = false
			sb.WriteString(line)
			sb.WriteString("\n")
			continue
		}

		if inFence {
			if fenceLines < codeBlockPreviewLines {
				sb.WriteString(line)
				sb.WriteString("\n")
				fenceLines++
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	out := sb.String()
	if len(out) > budget {
		out = out[:budget]
	}
	return out
}
