package compare

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/easyrelocate/internal/model"
)

// Sheet names in the spreadsheet export.
const (
	SheetListings = "Listings"
	SheetTarget   = "Target"
)

var listingHeader = []string{
	"Title", "Source", "URL", "Price", "Currency", "Period",
	"Location", "Lat", "Lng", "Distance (km)", "Captured At",
}

// WriteXLSX writes res as a workbook with one row per comparison item, in
// comparison order, and a second sheet describing the target.
func WriteXLSX(w io.Writer, res *model.CompareResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetListings)
	if err != nil {
		return eris.Wrap(err, "compare: add listings sheet")
	}
	addStrings(sheet.AddRow(), listingHeader...)
	for _, item := range res.Items {
		l := item.Listing
		row := sheet.AddRow()
		addOptString(row, l.Title)
		addStrings(row, string(l.Source), l.SourceURL)
		addOptFloat(row, l.PriceValue)
		addStrings(row, l.Currency, string(l.PricePeriod))
		addOptString(row, l.LocationText)
		addOptFloat(row, l.Lat)
		addOptFloat(row, l.Lng)
		addOptFloat(row, item.Metrics.DistanceKM)
		addStrings(row, l.CapturedAt.UTC().Format(time.RFC3339))
	}

	ts, err := f.AddSheet(SheetTarget)
	if err != nil {
		return eris.Wrap(err, "compare: add target sheet")
	}
	t := res.Target
	addStrings(ts.AddRow(), "Name", "Address", "Lat", "Lng", "Updated At")
	row := ts.AddRow()
	addStrings(row, t.Name)
	addOptString(row, t.Address)
	addOptFloat(row, &t.Lat)
	addOptFloat(row, &t.Lng)
	addStrings(row, t.UpdatedAt.UTC().Format(time.RFC3339))

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "compare: write xlsx")
	}
	return nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// addOptString leaves the cell empty for nil.
func addOptString(row *xlsx.Row, v *string) {
	cell := row.AddCell()
	if v != nil {
		cell.SetString(*v)
	}
}

// addOptFloat leaves the cell empty for nil.
func addOptFloat(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
