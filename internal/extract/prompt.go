package extract

import "fmt"

const systemPrompt = "You extract housing listing details from text a user selected on a web page. " +
	"Reply with a single JSON object and nothing else: no markdown and no code fences. " +
	"Use null for anything the text does not state. Never invent facts."

func userPrompt(selection, pageURL string) string {
	return fmt.Sprintf(`Pull the listing fields out of the selected text below.

Rules:
- Only monthly rent matters. Ignore deposits, application fees and one-time charges.
- Convert other periods to an estimated monthly rent: weekly x 4.345, nightly or daily x 30.
- When several rents appear, use the main one.
- Assume USD when the currency is unclear.
- For location, choose the most specific place that can be geocoded without exposing anyone:
  1. a cross street or intersection ("Near X & Y")
  2. a neighborhood or ZIP code with city and state
  3. city and state
  Write "Near X & Y" as "X & Y, City, State ZIP, Country" when those parts are known.
  A 5-digit ZIP means the country is USA; add the state abbreviation when you know it.
  In a US context a bare highway number such as "101" becomes "US-101".
  Never put phone numbers or email addresses in location_text.

Return JSON with exactly these keys:
- title: string or null, a short name for the listing
- location_text: string or null, following the location rules
- price_value: number or null, the monthly rent
- currency: string or null, an ISO code such as USD, EUR or GBP
- price_period: "month" when price_value is set, otherwise null

page_url: %s

selected_text:
%s
`, pageURL, selection)
}
