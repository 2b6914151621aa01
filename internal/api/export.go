package api

import (
	"fmt"
	"net/http"

	"steam-sentinel/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportValuation writes the current portfolio valuation and verdicts as an
// xlsx workbook.
func (h *APIHandler) ExportValuation(c *gin.Context) {
	valuation, ok := h.store.Valuation()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no completed cycle yet"})
		return
	}
	recs := h.store.Recommendations()

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Valuation"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Game", "Item", "Quantity", "Unit Price", "Total", "Verdict", "Ask Price", "Trades/Day", "Confidence"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, head)
	}

	for row, item := range valuation.Items {
		values := []interface{}{
			item.GameName,
			item.MarketHashName,
			item.Quantity,
			cents(item.UnitPriceCents),
			cents(item.TotalCents),
		}
		if item.Unpriced {
			values[3] = "n/a"
			values[4] = "n/a"
		}
		if rec, ok := recs[item.MarketHashName]; ok {
			values = append(values,
				string(rec.Verdict),
				cents(rec.RecommendedCents),
				fmt.Sprintf("%.2f", rec.TradesPerDay),
				fmt.Sprintf("%.2f", rec.Confidence))
			if rec.Verdict != models.VerdictSell {
				values[6] = ""
			}
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	totalRow := len(valuation.Items) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), cents(valuation.TotalCents))

	filename := fmt.Sprintf("valuation-%s.xlsx", valuation.TakenAt.Format("2006-01-02-1504"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func cents(v int64) float64 { return float64(v) / 100 }
