package listing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

const (
	maxURLLen  = 2048
	maxTextLen = 20000
)

// ValidateInput checks an upsert payload before any lookup happens.
func ValidateInput(in model.ListingInput) error {
	if !in.Source.Valid() {
		return apperr.Validation(fmt.Sprintf("source must be one of airbnb, blueground, post (got %q)", in.Source))
	}
	if in.SourceURL == "" || len(in.SourceURL) > maxURLLen {
		return apperr.Validation("source_url must be between 1 and 2048 characters")
	}
	if !strings.HasPrefix(in.SourceURL, "http://") && !strings.HasPrefix(in.SourceURL, "https://") {
		return apperr.Validation("source_url must start with http:// or https://")
	}
	if in.PricePeriod != nil && !in.PricePeriod.Valid() {
		return apperr.Validation(fmt.Sprintf("price_period must be one of night, month, total, unknown (got %q)", *in.PricePeriod))
	}
	return nil
}

// parsePageURL requires an absolute http(s) URL.
func parsePageURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLen {
		return nil, apperr.Validation("page_url must be between 1 and 2048 characters")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("page_url must be an http(s) URL")
	}
	return u, nil
}
