package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestStaticCleanTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pom.xml": "<project>(((</project>\n",
		"src/main/java/com/shop/ShopApplication.java": "package com.shop;\n\n" +
			"public class ShopApplication {\n" +
			"    public static void main(String[] args) {\n" +
			"    }\n" +
			"}\n",
		"src/main/resources/templates/products.html": "<div>{{ not java }}</div>\n",
		"src/main/java/com/shop/model/Product.java": "package com.shop.model;\n\n" +
			"// { stray brace in a comment\n" +
			"public class Product {\n" +
			"    private String pattern = \"}{)(\";\n\n" +
			"    public char brace() {\n" +
			"        return '{';\n" +
			"    }\n" +
			"}\n",
	})

	findings, err := Static(root)

	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestStaticFindings(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/main/java/com/shop/Broken.java": "package com.shop;\n\n" +
			"public class Broken {\n" +
			"    public void f() {\n" +
			"}\n",
		"src/main/java/com/shop/NoPkg.java": "public class NoPkg {\n}\n",
		"src/main/java/com/shop/model/Wrong.java": "package com.shop;\n\n" +
			"public class Wrong {\n}\n",
	})

	findings, err := Static(root)

	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Contains(t, findings[0], "Broken.java: unbalanced braces (+1)")
	assert.Contains(t, findings[1], "NoPkg.java: missing package declaration, directory implies com.shop")
	assert.Contains(t, findings[2], "Wrong.java: declared package com.shop, directory implies com.shop.model")
}

func TestStaticMissingRoot(t *testing.T) {
	_, err := Static(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCountDelims(t *testing.T) {
	cases := []struct {
		src    string
		braces int
		parens int
	}{
		{"{ ( ) }", 0, 0},
		{"{ {", 2, 0},
		{"( ( )", 0, 1},
		{"} )", -1, -1},
		{`x = "{(";`, 0, 0},
		{`x = "\"{";`, 0, 0},
		{"c = '{';", 0, 0},
		{"c = '\\'' + \"{\";", 0, 0},
		{"// { (\nx()", 0, 0},
		{"/* { ( */ {}", 0, 0},
	}
	for _, tc := range cases {
		braces, parens := countDelims(tc.src)
		assert.Equal(t, tc.braces, braces, "braces %q", tc.src)
		assert.Equal(t, tc.parens, parens, "parens %q", tc.src)
	}
}
