package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/xuri/excelize/v2"
)

const reviewExportSheet = "settlement_reviews"

var reviewExportHeader = []string{
	"uuid", "payment_id", "user_id", "stage", "amount", "status",
	"resolution", "resolved_by", "resolved_at", "error_message", "note", "created_at",
}

// ExportSettlementReviews renders reviews as a single sheet xlsx workbook
func ExportSettlementReviews(reviews []*models.SettlementReview) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), reviewExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	header := reviewExportHeader
	if err := xl.SetSheetRow(reviewExportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range reviews {
		resolution := ""
		if r.Resolution != nil {
			resolution = string(*r.Resolution)
		}
		resolvedAt := ""
		if r.ResolvedAt != nil {
			resolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.UUID.String(),
			r.PaymentID,
			strconv.FormatInt(r.UserID, 10),
			string(r.Stage),
			utils.FormatFiat(r.Amount),
			string(r.Status),
			resolution,
			utils.Deref(r.ResolvedBy),
			resolvedAt,
			r.ErrorMessage,
			utils.Deref(r.Note),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(reviewExportSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
