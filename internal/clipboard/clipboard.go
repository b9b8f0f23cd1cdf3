// Package clipboard copies rendered output to the system clipboard via the
// platform's clipboard command.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard command is found.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Tool is a clipboard command that reads the text to copy from stdin.
type Tool struct {
	Name string
	Args []string
}

// candidates lists clipboard commands per GOOS in order of preference.
var candidates = map[string][]Tool{
	"darwin": {{Name: "pbcopy"}},
	"linux": {
		{Name: "wl-copy"},
		{Name: "xclip", Args: []string{"-selection", "clipboard"}},
		{Name: "xsel", Args: []string{"--clipboard", "--input"}},
	},
	"windows": {{Name: "clip"}},
}

// Detect returns the first clipboard tool for goos that lookPath finds.
func Detect(goos string, lookPath func(string) (string, error)) (Tool, error) {
	for _, t := range candidates[goos] {
		if _, err := lookPath(t.Name); err == nil {
			return t, nil
		}
	}
	return Tool{}, ErrClipboardUnavailable
}

// Copy copies text to the system clipboard.
func Copy(text string) error {
	tool, err := Detect(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.Command(tool.Name, tool.Args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", tool.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
