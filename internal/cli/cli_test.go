package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springforge/internal/analyzer"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "fake")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("BASE_PACKAGE", "")
	t.Setenv("MAVEN_BIN", "no-such-maven-binary")
}

func writeRailsFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Gemfile": "source \"https://rubygems.org\"\n" +
			"gem \"rails\"\n",
		"config/routes.rb": "Rails.application.routes.draw do\n" +
			"  resources :products\n" +
			"end\n",
		"app/models/product.rb": "class Product < ApplicationRecord\n" +
			"end\n",
		"app/controllers/products_controller.rb": "class ProductsController < ApplicationController\n" +
			"end\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func runCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmdForTest()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "springforge dev")
}

func TestConvertEndToEnd(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())
	src := writeRailsFixture(t)
	out := filepath.Join(t.TempDir(), "app")

	stdout, err := runCommand(t, nil, "convert", src, "--out", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "output:")
	assert.Contains(t, stdout, "archive:")

	require.FileExists(t, filepath.Join(out, "pom.xml"))
	require.FileExists(t, filepath.Join(out, "src", "main", "resources", "application.properties"))
	require.FileExists(t, filepath.Join(out,
		"src", "main", "java", "com", "example", "transpiled", "model", "Product.java"))

	data, err := os.ReadFile(out + ".zip")
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "pom.xml")
}

// editingStdin rewrites the review file before delivering the Enter
// keypress, standing in for an operator editing the proposal.
type editingStdin struct {
	once sync.Once
	edit func()
}

func (r *editingStdin) Read(p []byte) (int, error) {
	r.once.Do(r.edit)
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = '\n'
	return 1, io.EOF
}

func TestConvertReviewAppliesEdits(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())
	src := writeRailsFixture(t)
	out := filepath.Join(t.TempDir(), "app")

	stdin := &editingStdin{edit: func() {
		data, err := os.ReadFile(reviewFileName)
		require.NoError(t, err)
		var prop analyzer.StructureProposal
		require.NoError(t, json.Unmarshal(data, &prop))
		prop.Dirs["src/main/java/com/example/transpiled/service"] = []analyzer.ProposedFile{
			{Name: "ProductService.java"},
		}
		edited, err := json.Marshal(prop)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(reviewFileName, edited, 0o644))
	}}

	_, err := runCommand(t, stdin, "convert", src, "--out", out, "--review", "--skip-validate")
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(out,
		"src", "main", "java", "com", "example", "transpiled", "service", "ProductService.java"))
}

func TestConvertRejectsNonEmptyOut(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())
	src := writeRailsFixture(t)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "keep.txt"), []byte("x"), 0o644))

	_, err := runCommand(t, nil, "convert", src, "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
}

func TestConvertRejectsMissingSource(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())

	_, err := runCommand(t, nil, "convert", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestConvertRejectsBadBasePackage(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())

	_, err := runCommand(t, nil, "convert", "whatever", "--base-package", "Not.A.Package")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base package")
}

func TestAnalyzePrintsTreeAndDiagram(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())
	src := writeRailsFixture(t)

	out, err := runCommand(t, nil, "analyze", src)
	require.NoError(t, err)

	assert.Contains(t, out, "proposed structure (3 files)")
	assert.Contains(t, out, "src/main/java/com/example/transpiled/model/")
	assert.Contains(t, out, "Product.java  (Product entity)")
	assert.Contains(t, out, "graph TD")
}

func TestAnalyzeJSONOutput(t *testing.T) {
	setupEnv(t)
	t.Chdir(t.TempDir())
	src := writeRailsFixture(t)

	out, err := runCommand(t, nil, "analyze", src, "--json")
	require.NoError(t, err)

	var prop analyzer.StructureProposal
	require.NoError(t, json.Unmarshal([]byte(out), &prop))
	assert.Equal(t, 3, prop.FileCount())
}

func TestResolveSettingsOverrides(t *testing.T) {
	setupEnv(t)

	settings, err := resolveSettings("", "fake", "my-model", "com.shop", 8)
	require.NoError(t, err)
	assert.Equal(t, "fake", settings.Provider)
	assert.Equal(t, "my-model", settings.Model)
	assert.Equal(t, "com.shop", settings.BasePackage)
	assert.Equal(t, 8, settings.Parallelism)

	_, err = resolveSettings("", "", "", "COM.SHOP", 0)
	require.Error(t, err)
}

func TestEnsureFreshDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, ensureFreshDir(dir))
	require.DirExists(t, dir)

	// empty existing dir is fine, reuse is not
	require.NoError(t, ensureFreshDir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("x"), 0o644))
	require.Error(t, ensureFreshDir(dir))
}
