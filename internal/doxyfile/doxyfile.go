// Package doxyfile generates a Doxyfile from a template by literal
// placeholder substitution.
//
// The template format is the conventional doxyfile.in: a complete Doxyfile
// with @DOXYGEN_INPUT_DIRS@ and @DOXYGEN_OUTPUT_DIR@ standing in for the
// INPUT and OUTPUT_DIRECTORY values. Additional @TOKEN@ placeholders can be
// supplied per project.
package doxyfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const (
	inputDirsToken = "@DOXYGEN_INPUT_DIRS@"
	outputDirToken = "@DOXYGEN_OUTPUT_DIR@"

	// OutputName is the fixed name of the generated file, next to the
	// template.
	OutputName = "Doxyfile"
)

// Substitution holds the values substituted into the template.
type Substitution struct {
	// InputDirs is the space-separated list of source directories, used
	// verbatim as the INPUT value.
	InputDirs string
	// OutputDir is the OUTPUT_DIRECTORY value.
	OutputDir string
	// Extra maps additional token names (without the @ delimiters) to their
	// replacement values.
	Extra map[string]string
}

// Render returns the template content with all placeholders replaced. Bytes
// outside the placeholders are preserved exactly.
func Render(template []byte, sub Substitution) []byte {
	out := bytes.ReplaceAll(template, []byte(inputDirsToken), []byte(sub.InputDirs))
	out = bytes.ReplaceAll(out, []byte(outputDirToken), []byte(sub.OutputDir))
	for token, value := range sub.Extra {
		out = bytes.ReplaceAll(out, []byte("@"+token+"@"), []byte(value))
	}
	return out
}

// Configure reads the template at templatePath, substitutes placeholders and
// writes the result as "Doxyfile" in the template's directory. The write is
// atomic so a failed build never leaves a truncated Doxyfile behind. It
// returns the path of the generated file.
func Configure(templatePath string, sub Substitution) (string, error) {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("read doxyfile template: %w", err)
	}

	outPath := filepath.Join(filepath.Dir(templatePath), OutputName)
	rendered := Render(template, sub)
	if err := atomic.WriteFile(outPath, bytes.NewReader(rendered)); err != nil {
		return "", fmt.Errorf("write %s: %w", OutputName, err)
	}
	return outPath, nil
}

// JoinInputs renders a list of input directories as the space-separated
// string Doxygen expects for its INPUT setting.
func JoinInputs(inputs []string) string {
	return strings.Join(inputs, " ")
}
