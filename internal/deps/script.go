package deps

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const shebangLimit = 256

// scriptInterpreter returns the program a "#!" line runs, looking through
// "env" to the program it starts.
func scriptInterpreter(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	line, err := bufio.NewReader(io.LimitReader(file, shebangLimit)).ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, "#!") {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(fields) == 0 {
		return "", false
	}
	if filepath.Base(fields[0]) == "env" {
		for _, field := range fields[1:] {
			if !strings.HasPrefix(field, "-") {
				return field, true
			}
		}
		return "", false
	}
	return fields[0], true
}
