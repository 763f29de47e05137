package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// MemberCard holds the fields printed on a membership card.
type MemberCard struct {
	ChurchName string
	FullName   string
	Email      string
	Phone      string
	Ministry   string
	Role       string
	MemberID   string
}

// MemberCardExporter renders single-page membership cards.
type MemberCardExporter struct{}

// NewMemberCardExporter constructs a card exporter.
func NewMemberCardExporter() *MemberCardExporter {
	return &MemberCardExporter{}
}

// Render produces an A6 landscape card for one member.
func (e *MemberCardExporter) Render(card MemberCard) ([]byte, error) {
	if card.FullName == "" {
		return nil, fmt.Errorf("card requires a member name")
	}
	pdf := gofpdf.New("L", "mm", "A6", "")
	pdf.SetMargins(8, 8, 8)
	pdf.AddPage()

	header := card.ChurchName
	if header == "" {
		header = "MEMBERSHIP CARD"
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, strings.ToUpper(header), "", 1, "C", false, 0, "")
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(8, pdf.GetY()+1, 140, pdf.GetY()+1)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, card.FullName, "", 1, "", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	lines := []struct {
		label string
		value string
	}{
		{"Ministry", card.Ministry},
		{"Role", card.Role},
		{"Email", card.Email},
		{"Phone", card.Phone},
		{"Member ID", card.MemberID},
	}
	for _, line := range lines {
		if line.value == "" {
			continue
		}
		pdf.CellFormat(24, 6, line.label+":", "", 0, "", false, 0, "")
		pdf.CellFormat(0, 6, line.value, "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render member card: %w", err)
	}
	return buf.Bytes(), nil
}
