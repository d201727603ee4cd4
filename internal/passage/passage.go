// Package passage loads and selects reference passages.
package passage

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Default is the built-in reference passage.
const Default = "The gentle waves lapped against the shore as the sun began to set, painting the sky in hues of orange and pink. A cool breeze carried the scent of salt and seaweed, creating a peaceful atmosphere. Birds flew overhead, their calls echoing across the water."

// LoadPassages reads passages separated by blank lines from the provided file path.
func LoadPassages(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only passage file.
			_ = cerr
		}
	}()

	var passages []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		if p := Normalize(strings.Join(current, " ")); p != "" {
			passages = append(passages, p)
		}
		current = current[:0]
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	if len(passages) == 0 {
		return nil, fmt.Errorf("passage file is empty")
	}
	return passages, nil
}
