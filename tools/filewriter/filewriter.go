// Package filewriter lets agents save their deliverables (summary.md,
// answer.md) under a fixed output directory.
package filewriter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KamdynS/agentcrew/tools"
)

// Tool writes files below Root. Paths that resolve outside Root are rejected.
type Tool struct {
	Root string
}

func New(root string) *Tool {
	if root == "" {
		root = "."
	}
	return &Tool{Root: root}
}

type args struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Directory string `json:"directory,omitempty"`
	Overwrite *bool  `json:"overwrite,omitempty"`
}

func (t *Tool) Name() string { return "file_writer" }

func (t *Tool) Description() string {
	return "Writes content to a file in the output directory. Arguments: filename, content, optional directory and overwrite (default true)."
}

func (t *Tool) Schema() map[string]interface{} {
	s := tools.ObjectSchema([]string{"filename", "content"}, map[string]string{
		"filename":  "Name of the file to write, e.g. summary.md",
		"content":   "Full file content",
		"directory": "Optional subdirectory of the output directory",
	})
	s["properties"].(map[string]interface{})["overwrite"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Replace an existing file (default true)",
	}
	return s
}

func (t *Tool) Execute(ctx context.Context, input string) (string, error) {
	var a args
	if err := tools.DecodeArgs(input, &a, ""); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Filename) == "" {
		return "", errors.New("filename is required")
	}
	path, err := t.resolve(a.Directory, a.Filename)
	if err != nil {
		return "", err
	}
	overwrite := a.Overwrite == nil || *a.Overwrite
	if err := Write(path, a.Content, overwrite); err != nil {
		return "", err
	}
	return fmt.Sprintf("Content successfully written to %s", path), nil
}

func (t *Tool) resolve(dir, name string) (string, error) {
	root, err := filepath.Abs(t.Root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, dir, name)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("path %q escapes the output directory", filepath.Join(dir, name))
	}
	return path, nil
}

// Write creates parent directories and writes content to path.
func Write(path, content string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("file %s already exists", path)
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var _ tools.Tool = (*Tool)(nil)
