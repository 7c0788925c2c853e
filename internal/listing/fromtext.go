package listing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

const (
	titleFallbackRunes = 80
	textHashHexLen     = 16
	textFragmentKey    = "er_text="
)

// CreateFromText extracts listing fields from pasted text and upserts them as
// a post listing. The same text pasted against the same page always maps to
// the same listing.
func (s *Service) CreateFromText(ctx context.Context, workspaceID, text, pageURL string) (*model.Listing, error) {
	page, err := parsePageURL(pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > maxTextLen {
		return nil, apperr.Validation("text must be between 1 and 20000 characters")
	}
	if s.extractor == nil {
		return nil, apperr.Config("Text extraction is not configured")
	}

	ex, err := s.extractor.Extract(ctx, text, page.String())
	if err != nil {
		return nil, eris.Wrap(err, "listing: extract from text")
	}

	in := model.ListingInput{
		Source:       model.SourcePost,
		SourceURL:    TextSourceURL(page.String(), text),
		Title:        ex.Title,
		PriceValue:   ex.PriceValue,
		Currency:     ex.Currency,
		PricePeriod:  ex.PricePeriod,
		LocationText: ex.LocationText,
	}
	if in.Title == nil {
		if t := fallbackTitle(text); t != "" {
			in.Title = &t
		}
	}
	if ex.LocationText != nil {
		if c, ok := s.lookupCoords(ctx, *ex.LocationText); ok {
			in.Lat, in.Lng = &c.Lat, &c.Lng
		}
	}

	return s.Upsert(ctx, workspaceID, in)
}

// TextSourceURL derives the dedup key for a text-derived listing: the page
// URL without query or fragment, plus a fragment carrying a short hash of the
// normalized text.
func TextSourceURL(pageURL, text string) string {
	base := pageURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	sum := sha256.Sum256([]byte(normalizeText(text)))
	return base + "#" + textFragmentKey + hex.EncodeToString(sum[:])[:textHashHexLen]
}

// normalizeText applies NFKC, lower-cases, and collapses whitespace runs.
func normalizeText(text string) string {
	folded := cases.Lower(language.Und).String(norm.NFKC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

func fallbackTitle(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	r := []rune(collapsed)
	if len(r) > titleFallbackRunes {
		return strings.TrimSpace(string(r[:titleFallbackRunes]))
	}
	return collapsed
}
