package analyzer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedResponse = "```json\n" + `{
  "src/main/java/com/shop/model": [
    {"name": "Product.java", "summary": "Product entity"},
    {"name": "Order.java", "summary": "Order entity"}
  ],
  "src/main/java/com/shop/controller": [
    {"name": "ProductController.java", "summary": "REST endpoints"}
  ]
}` + "\n```\n---MERMAID---\n```mermaid\ngraph TD\n    A[ProductController] --> B[Product]\n```\n"

func TestParseWellFormed(t *testing.T) {
	prop, err := Parse(wellFormedResponse)
	require.NoError(t, err)

	require.Len(t, prop.Dirs, 2)
	assert.Equal(t, []ProposedFile{
		{Name: "Order.java", Summary: "Order entity"},
		{Name: "Product.java", Summary: "Product entity"},
	}, prop.Dirs["src/main/java/com/shop/model"])
	assert.Equal(t, "graph TD\n    A[ProductController] --> B[Product]", prop.Diagram)
	assert.Empty(t, prop.Warnings)
}

// A syntactically valid response must survive a render-parse round
// trip with the directory mapping intact.
func TestParseRoundTrip(t *testing.T) {
	dirs := map[string][]ProposedFile{
		"src/main/java/com/shop/model":   {{Name: "Order.java", Summary: "order"}, {Name: "Product.java", Summary: "product"}},
		"src/main/java/com/shop/service": {{Name: "OrderService.java", Summary: "checkout"}},
		"src/main/resources/templates":   {{Name: "products.html", Summary: "listing page"}},
	}
	encoded, err := json.MarshalIndent(dirs, "", "  ")
	require.NoError(t, err)

	resp := "```json\n" + string(encoded) + "\n```\n---MERMAID---\n```mermaid\ngraph TD\n    A --> B\n```\n"
	prop, perr := Parse(resp)
	require.NoError(t, perr)
	assert.Equal(t, dirs, prop.Dirs)
	assert.Equal(t, "graph TD\n    A --> B", prop.Diagram)
}

// Diagram recovery must not depend on the delimiter: a trailing
// mermaid fence alone is enough.
func TestParseDiagramWithoutDelimiter(t *testing.T) {
	resp := "```json\n" + `{"src/main/java/com/shop/model": [{"name": "Product.java"}]}` + "\n```\n" +
		"Here is the architecture:\n```mermaid\ngraph TD\n    A --> B\n```\n"

	prop, err := Parse(resp)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n    A --> B", prop.Diagram)
	assert.Len(t, prop.Dirs, 1)
}

func TestParseBareObjectInProse(t *testing.T) {
	resp := `Sure! Based on the files, I propose:

{
  "src/main/java/com/shop/model": [
    {"name": "Product.java", "summary": "entity with {braces} in summary"}
  ]
}

---MERMAID---
graph TD
    A --> B
`
	prop, err := Parse(resp)
	require.NoError(t, err)
	require.Len(t, prop.Dirs, 1)
	assert.Equal(t, "entity with {braces} in summary", prop.Dirs["src/main/java/com/shop/model"][0].Summary)
	assert.Equal(t, "graph TD\n    A --> B", prop.Diagram)
}

func TestParseSingleQuotedObject(t *testing.T) {
	resp := `{'src/main/java/com/shop/model': [{'name': 'Product.java', 'summary': 'entity'}]}`

	prop, err := Parse(resp)
	require.NoError(t, err)
	require.Len(t, prop.Dirs, 1)
	assert.Equal(t, "Product.java", prop.Dirs["src/main/java/com/shop/model"][0].Name)
	assert.Contains(t, prop.Warnings, "response carries no mermaid diagram")
	assert.Empty(t, prop.Diagram)
}

func TestParseWholeResponseJSON(t *testing.T) {
	resp := `{"src/main/java/com/shop/util": ["DateUtil.java", "StringUtil.java"]}`

	prop, err := Parse(resp)
	require.NoError(t, err)
	assert.Equal(t, []ProposedFile{{Name: "DateUtil.java"}, {Name: "StringUtil.java"}},
		prop.Dirs["src/main/java/com/shop/util"])
}

func TestParseDropsForeignKeysAndMalformedEntries(t *testing.T) {
	resp := "```json\n" + `{
  "notes": "ignore me",
  "src/main/java/com/shop/model": [
    {"name": "Product.java"},
    {"summary": "no name here"},
    42
  ],
  "src/main/java/com/shop/empty": []
}` + "\n```"

	prop, err := Parse(resp)
	require.NoError(t, err)
	require.Len(t, prop.Dirs, 1)
	assert.Equal(t, []ProposedFile{{Name: "Product.java"}}, prop.Dirs["src/main/java/com/shop/model"])

	joined := ""
	for _, w := range prop.Warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, `non-source key "notes"`)
	assert.Contains(t, joined, "unnamed entry")
	assert.Contains(t, joined, "malformed entry")
	assert.Contains(t, joined, "no usable files")
}

func TestParseFailureKeepsRaw(t *testing.T) {
	raw := "I'm sorry, I cannot design this structure."

	_, err := Parse(raw)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, raw, perr.Raw)
}

func TestParseDiagramAfterDelimiterUnfenced(t *testing.T) {
	resp := `{"src/main/java/com/shop/model": [{"name": "A.java"}]}` +
		"\n---MERMAID---\ngraph LR\n    A --> B\n"

	prop, err := Parse(resp)
	require.NoError(t, err)
	assert.Equal(t, "graph LR\n    A --> B", prop.Diagram)
}
