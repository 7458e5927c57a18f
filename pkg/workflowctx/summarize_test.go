package workflowctx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_KeepsHeadingsAndTruncatesCodeBlocks(t *testing.T) {
	content := "# Title\n" +
		"some narrative text that should be dropped\n" +
		"## Subheading\n" +
		"```go\n" +
		strings.Repeat("fmt.Println(\"x\")\n", 20) +
		"```\n" +
		"trailing prose\n"

	out := summarize(content, 10_000)

	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "## Subheading")
	assert.NotContains(t, out, "some narrative text")
	assert.NotContains(t, out, "trailing prose")

	fenceCount := strings.Count(out, "```")
	assert.Equal(t, 2, fenceCount)

	codeLines := strings.Count(out, "fmt.Println")
	assert.Equal(t, codeBlockPreviewLines, codeLines)
}

func TestSummarize_ZeroBudgetReturnsEmpty(t *testing.T) {
	assert.Empty(t, summarize("# Anything", 0))
}

func TestSummarize_HardTruncatesToBudget(t *testing.T) {
	content := strings.Repeat("# Heading\n", 1000)
	out := summarize(content, 50)
	assert.LessOrEqual(t, len(out), 50)
}
