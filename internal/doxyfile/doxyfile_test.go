package doxyfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const template = `# Doxyfile template
PROJECT_NAME           = "MapTransformer"
OUTPUT_DIRECTORY       = @DOXYGEN_OUTPUT_DIR@
INPUT                  = @DOXYGEN_INPUT_DIRS@
GENERATE_XML           = YES
RECURSIVE              = YES
`

func TestRenderReplacesBothTokens(t *testing.T) {
	got := Render([]byte(template), Substitution{
		InputDirs: "../include ../src",
		OutputDir: "build",
	})

	// The result must equal the template with both tokens replaced and be
	// byte-for-byte identical everywhere else.
	want := strings.ReplaceAll(template, "@DOXYGEN_INPUT_DIRS@", "../include ../src")
	want = strings.ReplaceAll(want, "@DOXYGEN_OUTPUT_DIR@", "build")
	require.Equal(t, want, string(got))
}

func TestRenderExtraTokens(t *testing.T) {
	in := []byte("PROJECT_NUMBER = @PROJECT_RELEASE@\n")
	got := Render(in, Substitution{Extra: map[string]string{"PROJECT_RELEASE": "1.0.0"}})
	require.Equal(t, "PROJECT_NUMBER = 1.0.0\n", string(got))
}

func TestRenderWithoutTokensIsUnchanged(t *testing.T) {
	in := []byte("PROJECT_NAME = fixed\n")
	require.Equal(t, in, Render(in, Substitution{InputDirs: "x", OutputDir: "y"}))
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "doxyfile.in")
	require.NoError(t, os.WriteFile(templatePath, []byte(template), 0o644))

	outPath, err := Configure(templatePath, Substitution{
		InputDirs: "../include ../src",
		OutputDir: "build",
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Doxyfile"), outPath)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "INPUT                  = ../include ../src")
	require.Contains(t, string(content), "OUTPUT_DIRECTORY       = build")
	require.NotContains(t, string(content), "@DOXYGEN_")
}

func TestConfigureMissingTemplate(t *testing.T) {
	_, err := Configure(filepath.Join(t.TempDir(), "doxyfile.in"), Substitution{})
	require.ErrorContains(t, err, "read doxyfile template")
}

func TestJoinInputs(t *testing.T) {
	require.Equal(t, "../include ../src", JoinInputs([]string{"../include", "../src"}))
	require.Equal(t, "", JoinInputs(nil))
}
