// Package notes models the structured output of an enriched meeting and
// handles its on-disk layout.
package notes

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Task is a single action item extracted from the meeting.
type Task struct {
	Description string `json:"description"`
	Owner       string `json:"owner,omitempty"`
}

// Notes is the structured enrichment result for one meeting.
type Notes struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Decisions []string `json:"decisions"`
	Tasks     []Task   `json:"tasks"`
}

// Markdown renders the notes as a markdown document with frontmatter.
func (n *Notes) Markdown(date time.Time) string {
	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %q\n", n.Title)
	fmt.Fprintf(&sb, "date: %s\n", date.Format("2006-01-02"))
	sb.WriteString("voiceBased: true\n")
	sb.WriteString("---\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString(strings.TrimSpace(n.Summary))
	sb.WriteString("\n")

	if len(n.Decisions) > 0 {
		sb.WriteString("\n## Decisions\n\n")
		for _, decision := range n.Decisions {
			fmt.Fprintf(&sb, "- %s\n", decision)
		}
	}

	if len(n.Tasks) > 0 {
		sb.WriteString("\n## Tasks\n\n")
		for _, task := range n.Tasks {
			if task.Owner != "" {
				fmt.Fprintf(&sb, "- [ ] %s (%s)\n", task.Description, task.Owner)
			} else {
				fmt.Fprintf(&sb, "- [ ] %s\n", task.Description)
			}
		}
	}

	return sb.String()
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen  = regexp.MustCompile(`-+`)
)

// Slug converts a meeting title to a filesystem-friendly slug.
// Example: "Q3 Planning Sync" -> "q3-planning-sync"
func Slug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = multiHyphen.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
