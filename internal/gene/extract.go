package gene

import "regexp"

// Ensembl-style descriptions embed the naming-authority accession in a
// bracketed suffix, e.g.
//
//	tyrosine kinase ABL1 [Source:MGI Symbol;Acc:MGI:87859]
//
// accessionPattern captures the token after "Acc:" up to the closing bracket.
var accessionPattern = regexp.MustCompile(`\[Source:[^;\]]+;Acc:([^\]]+)\]`)

// ExtractAccession returns the accession embedded in a free-text description,
// or the empty string when the description carries none. A malformed or
// missing bracket token is not an error.
func ExtractAccession(description string) string {
	m := accessionPattern.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}
