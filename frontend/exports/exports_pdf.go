package exports

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
)

// renderDocumentPDF lays out a printable document: header block, a Code
// 128 barcode of the document number for goods-in scanning, and the line
// table. Unconfirmed prices print as TBC.
func renderDocumentPDF(header documentHeader, lines []documentLineRow, printedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(header.DocNumber, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, header.DocNumber, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	supplier := strings.TrimSpace(header.Supplier)
	if supplier == "" {
		supplier = "-"
	}
	jobRef := strings.TrimSpace(header.JobRef)
	if jobRef == "" {
		jobRef = "-"
	}
	expected := header.ExpectedDate
	if expected == "" {
		expected = "-"
	}
	pdf.CellFormat(0, 6, "Supplier: "+supplier, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Job: "+jobRef, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+header.Status, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Expected: "+expected, "", 1, "L", false, 0, "")
	if header.LedgerRef != "" {
		pdf.CellFormat(0, 6, "Ledger: "+header.LedgerRef, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Printed: "+printedAt.Format("02/01/2006"), "", 1, "L", false, 0, "")

	barcodePNG, err := renderCode128PNG(header.DocNumber, 900, 200)
	if err != nil {
		return nil, err
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := fmt.Sprintf("doc-barcode-%d", header.ID)
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions(imageName, pageW-92, 14, 80, 18, false, opt, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 9)
	colW := []float64{62, 28, 22, 18, 20, 20, 20}
	cols := []string{"Description", "Part #", "Cost center", "Qty", "Unit cost", "Total", "Received"}
	for i, col := range cols {
		pdf.CellFormat(colW[i], 7, col, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	var grandTotal float64
	for _, line := range lines {
		qty := formatFloat(line.Quantity)
		if line.Kind == "time" {
			qty = formatFloat(line.Hours) + "h"
		}
		unitCost := "TBC"
		total := "-"
		if line.UnitCost.Valid {
			unitCost = fmt.Sprintf("%.2f", line.UnitCost.Float64)
			lineTotal := line.Quantity * line.UnitCost.Float64
			total = fmt.Sprintf("%.2f", lineTotal)
			grandTotal += lineTotal
		}
		pdf.CellFormat(colW[0], 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 6, line.PartNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 6, line.CostCenter, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 6, qty, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[4], 6, unitCost, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[5], 6, total, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[6], 6, formatFloat(line.ReceivedQty), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colW[0]+colW[1]+colW[2]+colW[3]+colW[4], 7, "Total ("+header.Currency+")", "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[5], 7, fmt.Sprintf("%.2f", grandTotal), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[6], 7, "", "1", 1, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	normalized := toNRGBA(scaled)
	var barcodePNG bytes.Buffer
	if err := png.Encode(&barcodePNG, normalized); err != nil {
		return nil, err
	}
	return barcodePNG.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
