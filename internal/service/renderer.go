package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/vitalis-health/backend/internal/models"
)

// ReportRenderer produces the downloadable report artifact from an analyzed
// assessment.
type ReportRenderer interface {
	Render(ctx context.Context, profile *models.UserProfile, rec *models.AssessmentRecord, result *AnalysisResult) ([]byte, error)
}

// PDFRenderer renders the report as a single-page PDF.
type PDFRenderer struct{}

var _ ReportRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, profile *models.UserProfile, rec *models.AssessmentRecord, result *AnalysisResult) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Health Assessment Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Name: %s", profile.Name))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Age: %d    Gender: %s    Country: %s", profile.Age, profile.Gender, profile.Country))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Assessment date: %s", rec.CreatedAt.Format("2006-01-02")))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Overall score: %d / 100", result.OverallScore))
	pdf.Ln(10)

	if len(result.CategoryScores) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Category scores")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for cat, score := range result.CategoryScores {
			pdf.Cell(0, 6, fmt.Sprintf("  %s: %d / 100", strings.ReplaceAll(cat, "_", " "), score))
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	if len(result.RiskFactors) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Risk factors")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, risk := range result.RiskFactors {
			pdf.Cell(0, 6, "  - "+risk)
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Recommendations")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, result.Recommendations, "", "L", false)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "This report is available for a single download and the underlying data is deleted afterwards. It is not a medical diagnosis.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
