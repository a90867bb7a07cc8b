package analysis

import (
	"strings"

	"github.com/hazyhaar/toolscout/scrape"
)

// MaxContentRunes caps how much page text goes into the prompt.
const MaxContentRunes = 2000

// Vocabulary is the fixed category list offered to the model.
var Vocabulary = []string{
	"development", "productivity", "automation", "collaboration", "design",
	"analytics", "security", "communication", "cloud", "database", "testing",
	"monitoring", "documentation", "devops", "ai", "other",
}

// BuildPrompt renders the summarize-and-categorize instruction for doc.
func BuildPrompt(doc scrape.Document) string {
	content := "No content available"
	if doc.Text != "" {
		content = truncateRunes(doc.Text, MaxContentRunes)
	}

	var b strings.Builder
	b.WriteString("\nYou are analyzing a tool/website. Based on this content, provide a summary and categorization:\n\n")
	b.WriteString("Title: " + doc.Title + "\n")
	b.WriteString("URL: " + doc.URL + "\n")
	b.WriteString("Description: " + doc.Description + "\n")
	b.WriteString("Content: " + content + "\n\n")
	b.WriteString("Respond in this exact format:\n\n")
	b.WriteString("SUMMARY: Write a concise 100-word summary of what this tool does, its key features, and why it's useful.\n\n")
	b.WriteString("CATEGORIES: List 3-5 relevant categories as comma-separated values. Choose from: ")
	b.WriteString(strings.Join(Vocabulary, ", ") + ".\n\n")
	b.WriteString("Example categories response:\nCATEGORIES: development, collaboration, automation\n\n")
	b.WriteString("Keep it simple and focused on the tool's main purpose.\n")
	return b.String()
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
