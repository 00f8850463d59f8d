package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/deckscan/deckscan/internal/entity"
)

// TextExtractor turns raw document bytes into ordered per-page text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (entity.RawDeckText, error)
}

// AssembleSlides renders per-page text as one labeled blob:
//
//	----- Slide 1 -----
//	<page 1 text>
//
//	----- Slide 2 -----
//	...
//
// Page order is preserved and pages with no extractable text keep their
// marker with an empty body.
func AssembleSlides(pageTexts []string) string {
	sections := make([]string, len(pageTexts))
	for i, text := range pageTexts {
		sections[i] = fmt.Sprintf("----- Slide %d -----\n%s\n", i+1, strings.TrimSpace(text))
	}
	return strings.Join(sections, "\n")
}
