// Package declaration parses the optional .clawshieldignore file in which a
// skill declares itself a security tool and lists rules it trips on purpose.
package declaration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// FileName is the declaration file looked up at the scan root.
const FileName = ".clawshieldignore"

// Config is a parsed declaration.
type Config struct {
	IsSecurityTool bool
	Tool           string
	Reason         string
	Ignored        map[string]struct{}
}

// IsIgnored reports whether ruleID was declared intentional.
// Safe to call on a nil Config.
func (c *Config) IsIgnored(ruleID string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Ignored[ruleID]
	return ok
}

// IgnoredIDs returns the declared rule IDs, sorted.
func (c *Config) IgnoredIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Ignored))
	for id := range c.Ignored {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type state int

const (
	stateTop state = iota
	stateList
)

var (
	securityToolLine = regexp.MustCompile(`(?i)^is_security_tool:\s*true`)
	trailingComment  = regexp.MustCompile(`\s+#`)
)

// Parse reads a declaration. Blank and comment lines are ignored
// everywhere; a list opened by "ignore:" ends at the first line that is
// not a "- " item, and that line is then read as a top-level line.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{Ignored: make(map[string]struct{})}
	st := stateTop

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if !utf8.ValidString(raw) {
			return nil, fmt.Errorf("line %d: invalid UTF-8", lineNo)
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if st == stateList {
			if strings.HasPrefix(line, "- ") {
				cfg.Ignored[listItem(line)] = struct{}{}
				continue
			}
			st = stateTop
		}

		switch {
		case securityToolLine.MatchString(line):
			cfg.IsSecurityTool = true
		case strings.HasPrefix(line, "tool:"):
			cfg.Tool = strings.TrimSpace(strings.TrimPrefix(line, "tool:"))
		case strings.HasPrefix(line, "reason:"):
			cfg.Reason = unquote(strings.TrimSpace(strings.TrimPrefix(line, "reason:")))
		case line == "ignore:":
			st = stateList
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// listItem extracts the rule id from a "- ID   # comment" line. The line is
// already trimmed, so the id is never empty; a comment needs whitespace
// before "#" to be cut.
func listItem(line string) string {
	item := strings.TrimSpace(strings.TrimPrefix(line, "- "))
	if loc := trailingComment.FindStringIndex(item); loc != nil {
		item = item[:loc[0]]
	}
	return strings.TrimSpace(item)
}

func unquote(s string) string {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if len(s) > 0 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

// Load reads the declaration at the root of a skill. A missing, unreadable
// or malformed file yields nil: the scan proceeds with no declaration.
func Load(root string) *Config {
	f, err := os.Open(filepath.Join(root, FileName))
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	cfg, err := Parse(f)
	if err != nil {
		return nil
	}
	return cfg
}
