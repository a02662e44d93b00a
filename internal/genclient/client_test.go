package genclient

import (
	"strings"
	"testing"

	"appforge/internal/attachment"
	"appforge/internal/pipeline"
)

func TestParseFiles_WrappedObject(t *testing.T) {
	files, err := ParseFiles(`{"files": {"index.html": "<html></html>", "README.md": "# app"}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if files["index.html"] != "<html></html>" || files["README.md"] != "# app" {
		t.Fatalf("files = %v", files)
	}
}

func TestParseFiles_MarkdownFenced(t *testing.T) {
	text := "Here you go:\n```json\n{\"files\": {\"index.html\": \"x\"}}\n```"
	files, err := ParseFiles(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if files["index.html"] != "x" {
		t.Fatalf("files = %v", files)
	}
}

func TestParseFiles_FlatMapFallback(t *testing.T) {
	files, err := ParseFiles(`{"index.html": "x", "style.css": "body{}"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}
}

func TestParseFiles_NoJSONIsAnError(t *testing.T) {
	if _, err := ParseFiles("sorry, I cannot do that"); err == nil {
		t.Fatalf("expected error for prose answer")
	}
}

func TestFinalText_ConcatenatesOutputTextParts(t *testing.T) {
	body := []byte(`{
		"id": "resp_1",
		"output": [
			{"type": "reasoning", "content": []},
			{"type": "message", "content": [
				{"type": "output_text", "text": "{\"files\":"},
				{"type": "refusal", "text": "nope"},
				{"type": "output_text", "text": "{\"a\":\"b\"}}"}
			]}
		]
	}`)
	text, err := finalText(body)
	if err != nil {
		t.Fatalf("finalText: %v", err)
	}
	if text != "{\"files\":\n{\"a\":\"b\"}}" {
		t.Fatalf("text = %q", text)
	}
}

func TestFinalText_RejectsGarbage(t *testing.T) {
	if _, err := finalText([]byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestBuildPrompt_Round1(t *testing.T) {
	prompt := BuildPrompt(pipeline.GenerateRequest{
		Brief:  "build a todo app",
		Checks: []string{"has index.html", "works offline"},
		Attachments: []attachment.Saved{
			{Name: "logo.png", Mime: "image/png"},
		},
		Round: 1,
	})
	for _, want := range []string{"build a todo app", "has index.html", "works offline", "logo.png", "README.md"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "round 2") {
		t.Errorf("round 1 prompt should not mention round 2")
	}
}

func TestBuildPrompt_Round2CarriesPriorReadme(t *testing.T) {
	prompt := BuildPrompt(pipeline.GenerateRequest{
		Brief:       "add dark mode",
		Round:       2,
		PriorReadme: "# todo app\nIt stores todos.",
	})
	if !strings.Contains(prompt, "It stores todos.") {
		t.Fatalf("prompt should carry the prior readme")
	}
	if !strings.Contains(prompt, "round 2") {
		t.Fatalf("prompt should frame the update round")
	}
}

func TestBuildPrompt_Round2WithoutReadmeOmitsContextBlock(t *testing.T) {
	prompt := BuildPrompt(pipeline.GenerateRequest{Brief: "b", Round: 2})
	if strings.Contains(prompt, "-----") {
		t.Fatalf("empty prior readme should not produce a context block")
	}
}
