// Package prompt renders every prompt the pipeline sends. Templates are
// static package constants; the builders below only substitute values
// into bracketed sections, never decide anything.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
)

// MermaidDelimiter separates the JSON structure block from the diagram
// block in analyzer responses. Parsing tolerates its absence.
const MermaidDelimiter = "---MERMAID---"

// StructureInput carries everything the structure-analysis user prompt embeds.
type StructureInput struct {
	Files       []string
	BasePackage string
	Truncated   bool
	RailsApp    bool
	Feedback    string // reviewer notes on a redo round, empty on the first pass
}

// Structure renders the user prompt for the structure-analysis call.
func Structure(in StructureInput) string {
	var buf bytes.Buffer

	project := "A Ruby project with the following files."
	if in.RailsApp {
		project = "A Ruby on Rails application with the following files."
	}
	if in.Truncated {
		project += fmt.Sprintf(" The listing is truncated to the first %d files.", len(in.Files))
	}
	writeSection(&buf, "PROJECT", project)
	writeSection(&buf, "FILES", formatList(in.Files))
	writeSection(&buf, "TARGET", fmt.Sprintf(
		"Base package: %s\nEvery proposed path must start with src/ and place Java sources under src/main/java/%s.",
		in.BasePackage, strings.ReplaceAll(in.BasePackage, ".", "/")))
	if strings.TrimSpace(in.Feedback) != "" {
		writeSection(&buf, "REVISION_FEEDBACK", in.Feedback)
	}
	return strings.TrimSpace(buf.String()) + "\n"
}

// StructureRetryHint is appended to the user prompt when the first
// response could not be parsed.
func StructureRetryHint(parseErr string) string {
	var buf bytes.Buffer
	writeSection(&buf, "FORMAT_ERROR", fmt.Sprintf(
		"Your previous response could not be parsed: %s\nRespond again with exactly one JSON object followed by the %s delimiter and one ```mermaid block.",
		parseErr, MermaidDelimiter))
	return strings.TrimSpace(buf.String()) + "\n"
}

// TranslateInput carries one file translation exchange.
type TranslateInput struct {
	Category    string
	ClassName   string
	BasePackage string
	TargetPath  string
	SourcePath  string
	SourceCode  string
}

// Translate renders the system and user prompts for one file translation.
// The system prompt is the shared base plus the category instruction;
// unknown categories fall back to the generic instruction.
func Translate(in TranslateInput) (system, user string) {
	system = TranslateSystemBase + "\n\n" + CategoryInstruction(in.Category)

	var buf bytes.Buffer
	writeSection(&buf, "TARGET", fmt.Sprintf(
		"Java class: %s\nFile: %s\nBase package: %s\nSource role: %s",
		in.ClassName, in.TargetPath, in.BasePackage, in.Category))
	writeSection(&buf, "RUBY_SOURCE", fmt.Sprintf("File: %s\n```ruby\n%s\n```", in.SourcePath, strings.TrimRight(in.SourceCode, "\n")))
	writeSection(&buf, "OUTPUT_FORMAT",
		"Reply with exactly one fenced ```java code block containing the complete file, including the package declaration and all imports. No commentary outside the block.")
	return system, strings.TrimSpace(buf.String()) + "\n"
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
