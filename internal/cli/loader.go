package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/parser"
)

// RuleExt is the file extension for rule files.
const RuleExt = ".weft"

// RuleFile is one parsed rule file.
type RuleFile struct {
	Path string
	Rule *ir.Rule
}

// LoadRuleFile parses a single rule file. Parsing itself never fails;
// only reading can.
func LoadRuleFile(path string) (RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("read rule file: %w", err)
	}
	return RuleFile{Path: path, Rule: parser.Parse(string(data))}, nil
}

// LoadRuleFiles loads rule files from the given paths. A directory path
// expands to its *.weft files in lexical order.
func LoadRuleFiles(paths []string) ([]RuleFile, error) {
	var files []RuleFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			f, err := LoadRuleFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(path, "*"+RuleExt))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", path, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			f, err := LoadRuleFile(match)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found", RuleExt)
	}
	return files, nil
}
