package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springforge/internal/llm"
)

func testRequest() Request {
	return Request{
		Category:    "model",
		ClassName:   "Product",
		BasePackage: "com.example.transpiled",
		TargetPath:  "src/main/java/com/example/transpiled/model/Product.java",
		SourcePath:  "app/models/product.rb",
		SourceCode:  "class Product < ApplicationRecord\nend\n",
	}
}

func TestExtractCodePrefersJavaFence(t *testing.T) {
	resp := "Original for reference:\n```ruby\nclass Product\nend\n```\n" +
		"And the translation:\n```java\npublic class Product {}\n```\n"

	code, err := ExtractCode(resp, "Product.java")
	require.NoError(t, err)
	assert.Equal(t, "public class Product {}", code)
}

// A single fenced block comes back exactly as written between the
// fences, whatever its tag.
func TestExtractCodeSingleFenceVerbatim(t *testing.T) {
	body := "package com.example;\n\npublic class Product {\n    private Long id;\n}"
	resp := "Here is the file:\n```\n" + body + "\n```\nDone."

	code, err := ExtractCode(resp, "Product.java")
	require.NoError(t, err)
	assert.Equal(t, body, code)
}

func TestExtractCodeNoFence(t *testing.T) {
	resp := "public class Product {} // forgot the fences"

	_, err := ExtractCode(resp, "Product.java")
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, resp, xerr.Raw)
	assert.Equal(t, "Product.java", xerr.Target)
}

func TestTranslateWithFakeClient(t *testing.T) {
	fake := llm.NewFakeClient()
	tr := New(fake, 16)

	code, err := tr.Translate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Contains(t, code, "public class Product")
	assert.NotContains(t, code, "```")

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "translate", calls[0].Phase)
	assert.Contains(t, calls[0].User, "class Product < ApplicationRecord")
	assert.Contains(t, calls[0].System, "@Entity")
}

func TestTranslateCachesBySource(t *testing.T) {
	fake := llm.NewFakeClient()
	tr := New(fake, 16)

	req := testRequest()
	first, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)
	second, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, fake.Calls(), 1)

	req.SourceCode = "class Product < ApplicationRecord\n  validates :name, presence: true\nend\n"
	_, err = tr.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, fake.Calls(), 2)
}

func TestTranslateCacheDisabled(t *testing.T) {
	fake := llm.NewFakeClient()
	tr := New(fake, 0)

	_, err := tr.Translate(context.Background(), testRequest())
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, fake.Calls(), 2)
}

type failingClient struct{ err error }

func (f *failingClient) Name() string { return "failing" }
func (f *failingClient) Close() error { return nil }
func (f *failingClient) Complete(context.Context, llm.Request) (string, error) {
	return "", f.err
}

func TestTranslatePropagatesClientError(t *testing.T) {
	want := llm.NewPermanentError(errors.New("quota exhausted"))
	tr := New(&failingClient{err: want}, 16)

	_, err := tr.Translate(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, llm.IsPermanent(err))
}
