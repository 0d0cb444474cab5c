// Package metadata attaches a provenance block to generated reports. The
// block ties a report to the cleaning run and the BI file it was computed
// from, so a report can be checked against both its own text and its input.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// BlockStart opens the provenance block.
	BlockStart = "<!-- egretail:provenance"
	// BlockEnd closes the provenance block.
	BlockEnd = "-->"
)

// Provenance verification errors.
var (
	ErrNoProvenance   = errors.New("no provenance block found")
	ErrBadProvenance  = errors.New("malformed provenance block")
	ErrNoReportHash   = errors.New("provenance has no report hash")
	ErrReportMismatch = errors.New("report does not match its hash")
	ErrNoSourceHash   = errors.New("provenance has no source hash")
	ErrSourceMismatch = errors.New("source file does not match the report")
)

// Provenance describes the run and the input behind a report.
type Provenance struct {
	RunID        string    `yaml:"run_id"`
	QualityTier  string    `yaml:"quality_tier,omitempty"`
	QualityScore float64   `yaml:"quality_score"`
	Validated    bool      `yaml:"validated"`
	Source       string    `yaml:"source,omitempty"`
	SourceSHA256 string    `yaml:"source_sha256,omitempty"`
	SignedAt     time.Time `yaml:"signed_at"`
	ReportSHA256 string    `yaml:"report_sha256"`
}

// HashBytes returns the hex SHA-256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Extract splits content into the report body and its provenance. The body
// has trailing newlines removed; it is what the report hash covers. A nil
// Provenance with a nil error means content carries no block.
func Extract(content string) (*Provenance, string, error) {
	start := strings.LastIndex(content, BlockStart)
	if start < 0 {
		return nil, strings.TrimRight(content, "\n"), nil
	}

	body := strings.TrimRight(content[:start], "\n")
	rest := content[start+len(BlockStart):]

	end := strings.Index(rest, BlockEnd)
	if end < 0 {
		return nil, body, fmt.Errorf("%w: unterminated", ErrBadProvenance)
	}

	var p Provenance
	if err := yaml.Unmarshal([]byte(rest[:end]), &p); err != nil {
		return nil, body, fmt.Errorf("%w: %v", ErrBadProvenance, err)
	}

	return &p, body, nil
}

// Sign replaces any existing block with p, stamped with the signing time
// and the hash of the report body.
func Sign(content string, p Provenance) (string, error) {
	_, body, err := Extract(content)
	if err != nil {
		return "", err
	}

	p.SignedAt = time.Now().UTC().Truncate(time.Second)
	p.ReportSHA256 = HashBytes([]byte(body))

	block, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode provenance: %w", err)
	}

	return body + "\n\n" + BlockStart + "\n" + string(block) + BlockEnd + "\n", nil
}

// Verify checks the report body against its recorded hash.
func Verify(content string) (*Provenance, error) {
	p, body, err := Extract(content)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, ErrNoProvenance
	}

	if p.ReportSHA256 == "" {
		return p, ErrNoReportHash
	}

	if got := HashBytes([]byte(body)); got != p.ReportSHA256 {
		return p, fmt.Errorf("%w: recorded %s, got %s", ErrReportMismatch, p.ReportSHA256, got)
	}

	return p, nil
}

// VerifySource checks that the file at path is the input the report was
// computed from.
func (p *Provenance) VerifySource(path string) error {
	if p.SourceSHA256 == "" {
		return ErrNoSourceHash
	}

	got, err := HashFile(path)
	if err != nil {
		return err
	}

	if got != p.SourceSHA256 {
		return fmt.Errorf("%w: %s", ErrSourceMismatch, path)
	}

	return nil
}
