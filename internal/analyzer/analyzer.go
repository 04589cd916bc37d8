package analyzer

import (
	"context"
	"fmt"
	"strings"

	"springforge/internal/llm"
	"springforge/internal/prompt"
)

const phase = "structure"

// Analyzer proposes a target structure with one LLM round trip and at
// most one corrective re-prompt when the first response cannot be
// decoded.
type Analyzer struct {
	client llm.Client
}

func New(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Input is the scanned project summary the structure prompt is built
// from. Files is the prompt listing, already truncated by the caller.
type Input struct {
	Files       []string
	Truncated   bool
	RailsApp    bool
	BasePackage string
	Feedback    string
}

// Propose asks the model for a target structure and parses the result.
// Transport errors come back as-is (transient ones were already
// retried by the client middleware). An unparseable response triggers
// one re-prompt carrying the parse failure; a second failure returns
// the ParseError with the raw response attached.
func (a *Analyzer) Propose(ctx context.Context, in Input) (*StructureProposal, error) {
	ctx = llm.WithPhase(ctx, phase)
	user := prompt.Structure(prompt.StructureInput{
		Files:       in.Files,
		BasePackage: in.BasePackage,
		Truncated:   in.Truncated,
		RailsApp:    in.RailsApp,
		Feedback:    in.Feedback,
	})

	raw, err := a.client.Complete(ctx, llm.Request{System: prompt.StructureSystem, User: user})
	if err != nil {
		return nil, err
	}
	prop, perr := Parse(raw)
	if perr == nil {
		return a.finish(prop, in), nil
	}

	raw, err = a.client.Complete(ctx, llm.Request{
		System: prompt.StructureSystem,
		User:   user + "\n" + prompt.StructureRetryHint(perr.Error()),
	})
	if err != nil {
		return nil, err
	}
	prop, perr2 := Parse(raw)
	if perr2 != nil {
		return nil, perr2
	}
	return a.finish(prop, in), nil
}

// finish checks the proposal against the requested base package. A
// directory outside it is flagged for review but stays in the
// proposal; the generator later verifies each emitted file's package
// declaration independently.
func (a *Analyzer) finish(prop *StructureProposal, in Input) *StructureProposal {
	pkgDir := "src/main/java/" + strings.ReplaceAll(in.BasePackage, ".", "/")
	for _, dir := range sortedDirs(prop.Dirs) {
		if strings.HasPrefix(dir, "src/main/java/") && !strings.HasPrefix(dir, pkgDir) {
			prop.Warnings = append(prop.Warnings,
				fmt.Sprintf("package mismatch: %s is outside base package %s", dir, in.BasePackage))
		}
	}
	return prop
}
