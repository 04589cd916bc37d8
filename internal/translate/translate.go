// Package translate turns one mapped Ruby file into its Java
// counterpart through the configured LLM. Responses are cached by
// source content, so a redo round after review does not repeat
// identical calls.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"springforge/internal/llm"
	"springforge/internal/prompt"
	"springforge/internal/util/llmtext"
)

const phase = "translate"

// ExtractionError reports a translation response with no usable code
// block. Raw keeps the full response so review can show what came
// back instead of an empty file.
type ExtractionError struct {
	Target string
	Raw    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no fenced code block in translation response for %s", e.Target)
}

// Request is one file translation.
type Request struct {
	Category    string
	ClassName   string
	BasePackage string
	TargetPath  string
	SourcePath  string
	SourceCode  string
}

// Translator drives per-file translation calls.
type Translator struct {
	client llm.Client
	cache  *lru.Cache[string, string]
}

// New builds a Translator. cacheSize <= 0 disables response caching.
func New(client llm.Client, cacheSize int) *Translator {
	t := &Translator{client: client}
	if cacheSize > 0 {
		if cache, err := lru.New[string, string](cacheSize); err == nil {
			t.cache = cache
		}
	}
	return t
}

// Translate renders the category prompt, calls the model and extracts
// the Java source from the response. The extracted text is returned
// verbatim; syntax checking is the validator's job.
func (t *Translator) Translate(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if t.cache != nil {
		if code, ok := t.cache.Get(key); ok {
			return code, nil
		}
	}

	ctx = llm.WithPhase(ctx, phase)
	system, user := prompt.Translate(prompt.TranslateInput{
		Category:    req.Category,
		ClassName:   req.ClassName,
		BasePackage: req.BasePackage,
		TargetPath:  req.TargetPath,
		SourcePath:  req.SourcePath,
		SourceCode:  req.SourceCode,
	})
	resp, err := t.client.Complete(ctx, llm.Request{System: system, User: user})
	if err != nil {
		return "", err
	}
	code, err := ExtractCode(resp, req.TargetPath)
	if err != nil {
		return "", err
	}
	if t.cache != nil {
		t.cache.Add(key, code)
	}
	return code, nil
}

// ExtractCode pulls the generated file out of a response: the first
// fence tagged java wins, otherwise the first fence of any tag.
func ExtractCode(resp, target string) (string, error) {
	if body, ok := llmtext.FirstFence(resp, "java"); ok {
		return body, nil
	}
	if body, ok := llmtext.FirstFence(resp, ""); ok {
		return body, nil
	}
	return "", &ExtractionError{Target: target, Raw: resp}
}

func cacheKey(req Request) string {
	h := sha256.New()
	for _, part := range []string{req.SourceCode, req.Category, req.ClassName, req.BasePackage} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
