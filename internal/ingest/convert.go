package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/docstage/docstage/internal/remote"
)

// ExternalConverter is the conversion collaborator: it turns an opaque
// source reference into zero or more named text sections.
type ExternalConverter interface {
	ConvertExternalSource(ctx context.Context, source string) ([]remote.Section, error)
}

// sectionFrontmatter is the provenance header written at the top of
// every synthesized section payload, so the stored document records
// where it came from.
type sectionFrontmatter struct {
	Source  string `yaml:"source"`
	Section string `yaml:"section"`
}

// slugify reduces a section name to a lower-case identifier usable in
// filenames and section IDs: letters and digits kept, runs of anything
// else collapsed to single dashes.
func slugify(name string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false

			continue
		}

		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// contentHash returns the SHA-256 hex digest of a section's content,
// recorded in provenance for resync change detection.
func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// synthesizeSection builds the markdown payload for one converted
// section: a YAML frontmatter provenance header followed by the section
// content verbatim.
func synthesizeSection(source, sectionID string, sec remote.Section) ([]byte, error) {
	fm, err := yaml.Marshal(sectionFrontmatter{Source: source, Section: sectionID})
	if err != nil {
		return nil, fmt.Errorf("marshalling section frontmatter: %w", err)
	}

	var b strings.Builder

	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(sec.Content)

	return []byte(b.String()), nil
}

// ConvertExternal invokes the conversion collaborator for one source
// reference and synthesizes a candidate per returned section. The call
// fails as a unit: a converter error yields no candidates at all. A
// successful call with zero sections yields an empty, non-error result.
//
// Every candidate carries the same source reference and a section
// identifier unique within the conversion (duplicate section names get
// a numeric suffix).
func ConvertExternal(ctx context.Context, converter ExternalConverter, source string) ([]Candidate, error) {
	sections, err := converter.ConvertExternalSource(ctx, source)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(sections))
	candidates := make([]Candidate, 0, len(sections))

	for _, sec := range sections {
		sectionID := slugify(sec.Name)
		if sectionID == "" {
			sectionID = "section"
		}

		seen[sectionID]++
		if n := seen[sectionID]; n > 1 {
			sectionID = fmt.Sprintf("%s-%d", sectionID, n)
		}

		content, err := synthesizeSection(source, sectionID, sec)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, Candidate{
			Name:     sectionID + ".md",
			MIMEType: "text/markdown",
			Content:  content,
			Provenance: ExternalProvenance{
				SourceRef:   source,
				SectionID:   sectionID,
				ContentHash: contentHash(sec.Content),
			},
		})
	}

	return candidates, nil
}
