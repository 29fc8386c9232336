// Package detect classifies a log file by matching its lines against an
// ordered list of rules. The first rule to match any line decides the type.
package detect

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/cyra/ecsify/internal/config"
)

// Unknown is returned when no rule matches any line of a file.
const Unknown = "unknown"

// Rule maps a line pattern to a log type label.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Type    string
}

// Match reports whether line contains a match of the rule's pattern.
func (r Rule) Match(line string) bool {
	return r.Pattern.MatchString(line)
}

// Registry is an immutable, ordered set of rules. It is safe for concurrent use.
type Registry struct {
	rules []Rule
}

// NewRegistry compiles specs in order.
func NewRegistry(specs []config.DetectorSpec) (*Registry, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("detector %q (index %d): %w", s.Name, i, err)
		}
		rules = append(rules, Rule{Name: s.Name, Pattern: re, Type: s.Type})
	}
	return &Registry{rules: rules}, nil
}

// Types returns the distinct type labels in first-seen order.
func (r *Registry) Types() []string {
	seen := make(map[string]struct{}, len(r.rules))
	var out []string
	for _, rule := range r.rules {
		if _, ok := seen[rule.Type]; ok {
			continue
		}
		seen[rule.Type] = struct{}{}
		out = append(out, rule.Type)
	}
	return out
}

// Match returns the first rule, in registry order, matching line.
func (r *Registry) Match(line string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Match(line) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Result is the outcome of classifying one file.
type Result struct {
	Type string
	Rule string // name of the winning rule, empty for Unknown
	Line int    // 1-based line number that matched, 0 for Unknown
}

// Classify scans lines in order, skipping blank ones, and stops pulling
// lines as soon as one matches a rule.
func (r *Registry) Classify(lines iter.Seq[string]) Result {
	n := 0
	for line := range lines {
		n++
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rule, ok := r.Match(line); ok {
			return Result{Type: rule.Type, Rule: rule.Name, Line: n}
		}
	}
	return Result{Type: Unknown}
}

// Detect returns the type label of lines, or Unknown.
func (r *Registry) Detect(lines iter.Seq[string]) string {
	return r.Classify(lines).Type
}
