// Package source renders windows of source code around a line of
// interest, the way the list command shows context around the current
// instruction.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru"
)

const cachedFiles = 16

// Cache reads source files and keeps the most recently listed ones in
// memory, split into lines.
type Cache struct {
	files *lru.Cache
}

// NewCache returns an empty source file cache.
func NewCache() *Cache {
	files, _ := lru.New(cachedFiles)
	return &Cache{files: files}
}

// Lines returns the contents of path split into lines.
func (c *Cache) Lines(path string) ([]string, error) {
	if v, ok := c.files.Get(path); ok {
		return v.([]string), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	c.files.Add(path, lines)
	return lines, nil
}

// Print writes the window [line-radius, line+radius] of path to out,
// clamped to line 1 at the low end, and marks the requested line with an
// arrow. Near the end of the file fewer context lines than requested are
// printed; that is not an error.
func (c *Cache) Print(out io.Writer, path string, line, radius int) error {
	lines, err := c.Lines(path)
	if err != nil {
		return err
	}
	start := line - radius
	if start < 1 {
		start = 1
	}
	end := line + radius
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i <= end; i++ {
		marker := "  "
		if i == line {
			marker = "=>"
		}
		fmt.Fprintf(out, "%s%4d:\t%s\n", marker, i, lines[i-1])
	}
	return nil
}
