package llm

import (
	"context"
	"sync"
)

// FakeClient returns deterministic canned responses per phase for
// offline runs and tests. Responses can be overridden per phase, and
// every request is recorded for assertions.
type FakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []FakeCall
}

// FakeCall captures one Complete invocation.
type FakeCall struct {
	Phase  string
	System string
	User   string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{responses: map[string]string{}}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// SetResponse overrides the canned response for a phase.
func (f *FakeClient) SetResponse(phase, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[phase] = text
}

// Calls returns a copy of the recorded invocations.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	phase := PhaseFrom(ctx)

	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Phase: phase, System: req.System, User: req.User})
	override, ok := f.responses[phase]
	f.mu.Unlock()
	if ok {
		return override, nil
	}

	switch phase {
	case "structure":
		return fakeStructureResponse, nil
	case "translate":
		return fakeTranslateResponse, nil
	default:
		return "{}", nil
	}
}

const fakeStructureResponse = "```json\n" + `{
  "src/main/java/com/example/transpiled/model": [
    {"name": "Product.java", "summary": "Product entity"}
  ],
  "src/main/java/com/example/transpiled/repository": [
    {"name": "ProductRepository.java", "summary": "JPA repository for Product"}
  ],
  "src/main/java/com/example/transpiled/controller": [
    {"name": "ProductController.java", "summary": "REST controller for products"}
  ]
}` + "\n```\n---MERMAID---\n```mermaid\ngraph TD\n    A[ProductController] --> B[ProductRepository]\n    B --> C[Product]\n```\n"

const fakeTranslateResponse = "```java\npackage com.example.transpiled.model;\n\npublic class Product {\n    private Long id;\n    private String name;\n}\n```\n"
