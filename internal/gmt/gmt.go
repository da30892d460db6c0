// Package gmt reads and writes gene-set-matrix (GMT) files: one tab-delimited
// line per gene set, NAME, description, then member symbols.
package gmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultDescription is the placeholder written when a set has no description
// of its own. Enrichment tools ignore the field.
const DefaultDescription = "na"

// Set is one named gene group. Members keep the order they were added in.
type Set struct {
	Name        string
	Description string
	Members     []string
}

// dedup returns the members with duplicates removed, preserving first-seen
// order.
func (s *Set) dedup() []string {
	seen := make(map[string]bool, len(s.Members))
	var out []string
	for _, m := range s.Members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Write serializes the sets as GMT lines. Empty sets produce no line. Members
// are deduplicated per line but not sorted. Duplicate set names within one
// matrix are an error.
func Write(w io.Writer, sets []Set) error {
	bw := bufio.NewWriter(w)
	names := make(map[string]bool, len(sets))
	for _, s := range sets {
		if s.Name == "" {
			return fmt.Errorf("gene set with empty name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate gene set name %q", s.Name)
		}
		names[s.Name] = true

		members := s.dedup()
		if len(members) == 0 {
			continue
		}
		desc := s.Description
		if desc == "" {
			desc = DefaultDescription
		}
		fields := append([]string{s.Name, desc}, members...)
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("write set %s: %w", s.Name, err)
		}
	}
	return bw.Flush()
}

// Parse reads GMT lines back into sets. Splitting a line on tabs and dropping
// the first two fields reproduces the member list exactly as written.
func Parse(r io.Reader) ([]Set, error) {
	var sets []Set
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("gmt line %q: need name, description and at least one member", fields[0])
		}
		sets = append(sets, Set{
			Name:        fields[0],
			Description: fields[1],
			Members:     fields[2:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gmt: %w", err)
	}
	return sets, nil
}

// Merge concatenates several matrices into one, keeping input order. Name
// collisions across inputs are an error, matching the Write contract.
func Merge(matrices ...[]Set) ([]Set, error) {
	var out []Set
	names := make(map[string]bool)
	for _, m := range matrices {
		for _, s := range m {
			if names[s.Name] {
				return nil, fmt.Errorf("duplicate gene set name %q across matrices", s.Name)
			}
			names[s.Name] = true
			out = append(out, s)
		}
	}
	return out, nil
}
