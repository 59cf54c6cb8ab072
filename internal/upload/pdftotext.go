package upload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PDFTextExtractor extracts text by shelling out to pdftotext (poppler).
// Page images are beyond what the command line offers, so extractions carry
// text only; a richer extractor can replace this behind the same interface.
type PDFTextExtractor struct {
	// Command overrides the binary name. Default "pdftotext".
	Command string
}

var _ Extractor = (*PDFTextExtractor)(nil)

// Extract implements Extractor.
func (p *PDFTextExtractor) Extract(ctx context.Context, data []byte) (Extraction, error) {
	command := p.Command
	if command == "" {
		command = "pdftotext"
	}

	// pdftotext reads the document from stdin and writes plain text to
	// stdout when both file arguments are "-".
	cmd := exec.CommandContext(ctx, command, "-", "-")
	cmd.Stdin = bytes.NewReader(data)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Extraction{}, fmt.Errorf("%s: %w: %s", command, err, stderr.String())
	}

	return Extraction{Text: out.String()}, nil
}
