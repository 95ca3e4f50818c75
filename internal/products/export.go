package product

import (
	"io"
	"time"

	"github.com/tealeg/xlsx"
)

const listingsSheet = "Listings"

var listingHeaders = []string{
	"ID", "Title", "Category", "Condition", "Price", "OriginalPrice",
	"CarbonSavedKg", "EcoScore", "Available", "Featured", "Views", "CreatedAt",
}

// WriteListingsWorkbook renders one row per listing into an xlsx workbook.
func WriteListingsWorkbook(w io.Writer, list []ProductDTO) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(listingsSheet)
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range listingHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range list {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID.String())
		row.AddCell().SetValue(p.Title)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(string(p.Condition))
		row.AddCell().SetValue(p.Price.StringFixed(2))
		original := ""
		if p.OriginalPrice != nil {
			original = p.OriginalPrice.StringFixed(2)
		}
		row.AddCell().SetValue(original)
		row.AddCell().SetValue(p.CarbonSaved.StringFixed(2))
		row.AddCell().SetValue(p.EcoScore)
		row.AddCell().SetBool(p.Available)
		row.AddCell().SetBool(p.IsFeatured)
		row.AddCell().SetInt(p.Views)
		row.AddCell().SetValue(p.CreatedAt.UTC().Format(time.RFC3339))
	}

	return file.Write(w)
}
