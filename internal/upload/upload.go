// Package upload converts one uploaded document into a synthetic turn input:
// the extracted text is combined with the user's typed message under a fixed
// template that keeps the two clearly delimited, and up to five page images
// are kept for the rendered user turn.
//
// The extraction itself is a boundary collaborator — see Extractor.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxRenderedImages caps how many page images are attached to the rendered
// user turn. Pages beyond the cap are summarized as a count.
const MaxRenderedImages = 5

// ErrEmptyDocument indicates extraction produced neither text nor images.
// The upload is treated as failed; the turn must not proceed with a silent
// empty attachment.
var ErrEmptyDocument = errors.New("document yielded no text or images")

// PageImage is one rendered page of the uploaded document.
type PageImage struct {
	Page int    `json:"page"`
	Data []byte `json:"data"`
}

// Extraction is the document extractor's result.
type Extraction struct {
	Text   string
	Images []PageImage
}

// Extractor converts raw file bytes into text and page images.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Extraction, error)
}

// Attachment is the processed upload, ready to combine with a user message.
type Attachment struct {
	Filename  string      `json:"filename"`
	Text      string      `json:"text"`
	Images    []PageImage `json:"images"`     // at most MaxRenderedImages
	MorePages int         `json:"more_pages"` // pages beyond the rendered cap
}

// NewAttachment validates and shapes an extraction. Returns ErrEmptyDocument
// when there is nothing to attach.
func NewAttachment(filename string, ex Extraction) (Attachment, error) {
	text := strings.TrimSpace(ex.Text)
	if text == "" && len(ex.Images) == 0 {
		return Attachment{}, fmt.Errorf("%s: %w", filename, ErrEmptyDocument)
	}

	a := Attachment{Filename: filename, Text: text, Images: ex.Images}
	if len(a.Images) > MaxRenderedImages {
		a.MorePages = len(a.Images) - MaxRenderedImages
		a.Images = a.Images[:MaxRenderedImages]
	}
	return a, nil
}

// MoreLabel returns the "+N more pages" indicator, or "" when every page is
// rendered.
func (a Attachment) MoreLabel() string {
	if a.MorePages == 0 {
		return ""
	}
	return fmt.Sprintf("+%d more pages", a.MorePages)
}

// CombinedText builds the turn input the model receives: document body
// first, then the literal user message, with provenance markers between.
func (a Attachment) CombinedText(userText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Attached document: %s]\n", a.Filename)
	b.WriteString(a.Text)
	b.WriteString("\n[End of document]\n\n")
	b.WriteString(userText)
	return b.String()
}
