package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z0-9_-]*\n?")
	fenceClose = regexp.MustCompile("\n?```$")
	numberRe   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	isoRe      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// locateJSONObject parses the reply strictly first, then falls back to the
// outermost {...} span.
func locateJSONObject(reply string) (map[string]any, error) {
	raw := strings.TrimSpace(reply)
	if strings.HasPrefix(raw, "```") {
		raw = fenceOpen.ReplaceAllString(raw, "")
		raw = fenceClose.ReplaceAllString(raw, "")
		raw = strings.TrimSpace(raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, apperr.Provider("Model did not return a JSON object", nil)
	}

	obj = nil
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, apperr.Provider("Model returned invalid JSON", err)
	}
	if obj == nil {
		return nil, apperr.Provider("Model did not return a JSON object", nil)
	}
	return obj, nil
}

func normalize(obj map[string]any) *Extraction {
	out := &Extraction{
		Title:      asString(obj["title"]),
		PriceValue: asFloat(obj["price_value"]),
		Currency:   normalizeCurrency(obj["currency"]),
	}

	if loc := asString(obj["location_text"]); loc != nil {
		cleaned := strings.TrimSpace(strings.Trim(*loc, ","))
		if cleaned != "" {
			out.LocationText = &cleaned
		}
	}

	if out.PriceValue != nil {
		period := model.PeriodMonth
		out.PricePeriod = &period
		if out.Currency == nil && *out.PriceValue != 0 {
			usd := model.DefaultCurrency
			out.Currency = &usd
		}
	}
	return out
}

func asString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// asFloat accepts JSON numbers and strings such as "$2,400/mo".
func asFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		m := numberRe.FindString(strings.ReplaceAll(strings.TrimSpace(t), ",", ""))
		if m == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func normalizeCurrency(v any) *string {
	s := asString(v)
	if s == nil {
		return nil
	}
	var code string
	switch *s {
	case "$", "USD":
		code = "USD"
	case "€", "EUR":
		code = "EUR"
	case "£", "GBP":
		code = "GBP"
	default:
		if !isoRe.MatchString(*s) {
			return nil
		}
		code = *s
	}
	return &code
}
