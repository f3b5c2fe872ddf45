package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readText returns args joined by spaces, or all of stdin when args is empty or "-".
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// readEvidence returns inline evidence, or the contents of path when set.
func readEvidence(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("use either --evidence or --evidence-file, not both")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read evidence file: %w", err)
	}
	return string(b), nil
}
