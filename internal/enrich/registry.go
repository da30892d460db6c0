package enrich

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadRegistry reads a tab-delimited registry table mapping numeric gene IDs
// to symbols and returns the symbols as a Reference. The TSV must carry the
// named ID and symbol columns in its header row; rows with an empty symbol
// are skipped.
func LoadRegistry(path, idColumn, symbolColumn string) (Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	return parseRegistry(f, idColumn, symbolColumn)
}

func parseRegistry(r io.Reader, idColumn, symbolColumn string) (Reference, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("registry: empty file")
	}
	header := strings.Split(scanner.Text(), "\t")

	idIdx, symIdx := -1, -1
	for i, col := range header {
		switch col {
		case idColumn:
			idIdx = i
		case symbolColumn:
			symIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("registry: missing %q column", idColumn)
	}
	if symIdx < 0 {
		return nil, fmt.Errorf("registry: missing %q column", symbolColumn)
	}

	ref := make(Reference)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) <= idIdx || len(fields) <= symIdx {
			continue
		}
		sym := strings.TrimSpace(fields[symIdx])
		if sym == "" || strings.TrimSpace(fields[idIdx]) == "" {
			continue
		}
		ref[sym] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return ref, nil
}
