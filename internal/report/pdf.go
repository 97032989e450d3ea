package report

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// SaveSummaryPDF renders the given processing summary into a PDF document.
func SaveSummaryPDF(s Summary, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Processing Summary", false)
	pdf.SetAuthor("wiblctl", false)
	pdf.SetCreator("wiblctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Processing Summary")
	addFileSection(pdf, s)
	addPacketTableSection(pdf, s)
	addChannelSection(pdf, s)
	addDigestQR(pdf, s)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addFileSection(pdf *gofpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "File")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Path", value: s.File},
		{label: "Size", value: strconv.FormatInt(s.SizeBytes, 10) + " bytes"},
		{label: "SHA-256", value: s.Sha256},
		{label: "Logger", value: emptyFallback(s.LoggerName, "-")},
		{label: "Platform", value: emptyFallback(s.Platform, "-")},
		{label: "Logger Version", value: emptyFallback(s.LoggerVersion, "-")},
		{label: "Time Source", value: s.TimeSource},
		{label: "Packets", value: strconv.Itoa(s.TotalPackets)},
		{label: "Faults", value: strconv.Itoa(s.TotalFaults)},
		{label: "Unresolved Elapsed", value: strconv.Itoa(s.UnresolvedElapsed)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	pdf.Ln(4)
}

func addPacketTableSection(pdf *gofpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Packet Statistics")
	pdf.Ln(9)

	headers := []string{"Name", "Observed", "Faults"}
	widths := []float64{100, 40, 40}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for _, row := range s.Packets {
		values := []string{
			row.Name,
			strconv.Itoa(row.Observed),
			strconv.Itoa(row.Faults),
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}
	pdf.Ln(4)
}

func addChannelSection(pdf *gofpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Output Channels")
	pdf.Ln(9)

	headers := []string{"Channel", "Observations"}
	widths := []float64{100, 80}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	rows := []struct {
		name  string
		count int
	}{
		{name: "Depth", count: s.Channels.Depth},
		{name: "Heading", count: s.Channels.Heading},
		{name: "Water Temperature", count: s.Channels.WaterTemp},
		{name: "Wind", count: s.Channels.Wind},
	}
	for _, row := range rows {
		renderTableRow(pdf, widths, []string{row.name, strconv.Itoa(row.count)}, lineHeight)
	}
	pdf.Ln(4)
}

func addDigestQR(pdf *gofpdf.Fpdf, s Summary) {
	png, err := DigestToQR(s.Sha256, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("digest-qr", opts, bytes.NewReader(png))
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Integrity")
	pdf.Ln(9)
	pdf.ImageOptions("digest-qr", pdf.GetX(), pdf.GetY(), 35, 35, false, opts, 0, "")
	pdf.Ln(38)
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		cellText := strings.Join(lines, "\n")
		pdf.MultiCell(widths[i], lineHeight, cellText, "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
