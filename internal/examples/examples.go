// Package examples locates and parses the labeled example files that
// candidate regexes are validated against.
package examples

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regex-validate/internal/model"
)

const (
	// Marker introduces the positive block.
	Marker = "+++"
	// Separator ends the positive block and introduces the negative one.
	Separator = "---"
)

// Index maps numeric file ids to example files in one directory.
type Index struct {
	dir   string
	ext   string
	paths map[int64]string
}

// NewIndex lists dir once. A file belongs to id N when its name ends in ext
// and the remaining stem parses as the base-10 integer N. When several names
// map to the same id, the first in lexical order wins.
func NewIndex(dir, ext string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "examples: read dir %s", dir)
	}

	ix := &Index{dir: dir, ext: ext, paths: make(map[int64]string)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), ext), 10, 64)
		if err != nil {
			continue
		}
		if prev, ok := ix.paths[id]; ok {
			zap.L().Debug("examples: duplicate file for id",
				zap.Int64("file_id", id),
				zap.String("kept", filepath.Base(prev)),
				zap.String("ignored", e.Name()),
			)
			continue
		}
		ix.paths[id] = filepath.Join(dir, e.Name())
	}
	return ix, nil
}

// Lookup returns the example file for id. A missing file is not an error.
func (ix *Index) Lookup(id int64) (string, bool) {
	p, ok := ix.paths[id]
	return p, ok
}

// Len reports how many ids the index covers.
func (ix *Index) Len() int {
	return len(ix.paths)
}

// Load reads and parses one example file.
func Load(path string) (model.ExampleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ExampleSet{}, eris.Wrapf(err, "examples: read %s", path)
	}
	return Parse(string(data)), nil
}

// Parse splits example-file content into positive and negative examples.
//
// The content is split on Separator. In the first part, the text between the
// first Marker and the next one (or the end of the part) is the positive
// block; without a Marker there are no positives. The second part, present
// when the Separator occurs at least once, is the negative block. Blocks are
// trimmed and split on newlines, keeping blank interior lines as literal
// examples. An empty block yields no examples.
func Parse(content string) model.ExampleSet {
	parts := strings.Split(content, Separator)

	var positive string
	if strings.Contains(parts[0], Marker) {
		positive = strings.Split(parts[0], Marker)[1]
	}
	var negative string
	if len(parts) > 1 {
		negative = parts[1]
	}

	return model.ExampleSet{
		Positive: lines(positive),
		Negative: lines(negative),
	}
}

func lines(block string) []string {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}
