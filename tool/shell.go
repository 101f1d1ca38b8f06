package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ShellTimeout bounds a single passthrough command run.
const ShellTimeout = 2 * time.Minute

// passthroughResult is the JSON shape passthrough handlers report back to
// the model. A failing exit code is success:false, not an error.
type passthroughResult struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Returncode int    `json:"returncode"`
	Command    string `json:"command"`
}

// execFailure is reported when the command could not be executed at all
// (binary missing, permission denied).
type execFailure struct {
	Success   bool   `json:"success"`
	Exception string `json:"exception"`
}

type passthroughArgs struct {
	Arguments string `json:"arguments"`
}

// CatTool returns the cat passthrough tool.
func CatTool() Definition {
	return passthroughTool("cat", `Execute the `+"`cat`"+` command with arbitrary arguments.
The arguments will be split on shell-word boundaries.
Use it to get the contents of one or more files in the current directory.
Returns a success boolean, the return code, stdout, and stderr of the command as json.
Example:
To execute `+"`cat file.txt`"+` call this tool with {"arguments": "file.txt"}`)
}

// GitTool returns the git passthrough tool.
func GitTool() Definition {
	return passthroughTool("git", `Execute the `+"`git`"+` command with arbitrary arguments.
The arguments will be split on shell-word boundaries.
Use it to execute git related commands (e.g. status, diff, add, commit, branch, rebase).
If some action is destructive (not reversible, e.g. "git checkout file"), don't execute it.
Returns a success boolean, the return code, stdout, and stderr of the command as json.
Example:
To execute `+"`git status -s`"+` call this tool with {"arguments": "status -s"}`)
}

// passthroughTool builds a tool that runs the named binary with the words of
// the single "arguments" string.
func passthroughTool(binary, description string) Definition {
	return Definition{
		Name:        binary,
		Description: description,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"arguments": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("The arguments for the %s command", binary),
				},
			},
			"required": []string{"arguments"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args passthroughArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", err
			}
			return runPassthrough(ctx, binary, args.Arguments)
		},
	}
}

func runPassthrough(ctx context.Context, binary, arguments string) (string, error) {
	words, err := SplitWords(arguments)
	if err != nil {
		return marshalResult(execFailure{Exception: err.Error()})
	}

	execCtx, cancel := context.WithTimeout(ctx, ShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, binary, words...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			// Could not execute at all: missing binary, permission denied.
			return marshalResult(execFailure{Exception: runErr.Error()})
		}
	}

	return marshalResult(passthroughResult{
		Success:    cmd.ProcessState.ExitCode() == 0,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Returncode: cmd.ProcessState.ExitCode(),
		Command:    strings.TrimSpace(binary + " " + arguments),
	})
}

func marshalResult(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SplitWords splits a command-line string on shell-word boundaries, honoring
// single quotes, double quotes and backslash escapes.
func SplitWords(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false
	var quote rune

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else if c == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("trailing backslash")
			}
			i++
			cur.WriteRune(runes[i])
			inWord = true
		case c == ' ' || c == '\t' || c == '\n':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
