package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Conceptual-Machines/intprep/pkg/embedded"
)

const (
	systemPromptFile = "system_prompt.txt"
	userPromptFile   = "user_prompt.tmpl"
)

// Loader reads prompt files from a filesystem
type Loader struct {
	fsys fs.FS
}

// NewPromptLoader reads the prompts compiled into the binary
func NewPromptLoader() *Loader {
	return &Loader{fsys: embedded.Prompts}
}

// NewPromptLoaderDir reads prompts from dir, falling back to the compiled-in
// file for any prompt dir does not contain.
func NewPromptLoaderDir(dir string) *Loader {
	return &Loader{fsys: overlayFS{top: os.DirFS(dir), base: embedded.Prompts}}
}

// GetSystemPrompt loads the interviewer system prompt
func (l *Loader) GetSystemPrompt() (string, error) {
	text, err := l.read(systemPromptFile)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s is empty", systemPromptFile)
	}
	return text, nil
}

// GetUserPromptTemplate loads the text/template source for the user prompt
func (l *Loader) GetUserPromptTemplate() (string, error) {
	return l.read(userPromptFile)
}

func (l *Loader) read(name string) (string, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %w", name, err)
	}
	return string(data), nil
}

// overlayFS serves files from top when present, otherwise from base
type overlayFS struct {
	top, base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.top.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return o.base.Open(name)
	}
	return f, err
}
