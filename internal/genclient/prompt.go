package genclient

import (
	"fmt"
	"strings"

	"appforge/internal/pipeline"
)

// BuildPrompt renders the generation instruction for one round. Round 2
// carries the prior README so the model updates instead of starting over.
func BuildPrompt(req pipeline.GenerateRequest) string {
	var b strings.Builder
	b.WriteString("You are a code generator that produces complete, static, browser-runnable web apps.\n")
	b.WriteString("Reply with a single JSON object of the form {\"files\": {\"<path>\": \"<full file content>\", ...}}.\n")
	b.WriteString("Always include README.md and index.html. No prose outside the JSON.\n\n")

	fmt.Fprintf(&b, "Task brief:\n%s\n", strings.TrimSpace(req.Brief))

	if len(req.Checks) > 0 {
		b.WriteString("\nThe result is evaluated against these checks:\n")
		for _, check := range req.Checks {
			fmt.Fprintf(&b, "- %s\n", check)
		}
	}

	if len(req.Attachments) > 0 {
		b.WriteString("\nAttachments available in the repository:\n")
		for _, att := range req.Attachments {
			fmt.Fprintf(&b, "- %s (%s)\n", att.Name, att.Mime)
		}
	}

	if req.Round == 2 && strings.TrimSpace(req.PriorReadme) != "" {
		b.WriteString("\nThis is round 2: update the existing app. The current README.md is:\n")
		b.WriteString("-----\n")
		b.WriteString(req.PriorReadme)
		b.WriteString("\n-----\n")
		b.WriteString("Keep what the README describes working and apply the new brief on top.\n")
	}

	return b.String()
}
