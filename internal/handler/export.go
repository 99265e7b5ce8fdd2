package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 月別集計の CSV / XLSX エクスポート。
// ブラウザからのダウンロードを想定しているので token はクエリでも渡せる
// （ミドルウェア側で対応）。
type ExportHandler struct {
	Store *store.Store
}

func NewExportHandler(st *store.Store) *ExportHandler {
	return &ExportHandler{Store: st}
}

func (h *ExportHandler) monthlyAggregate(c *gin.Context) (*schedule.MonthlyAggregate, bool) {
	year, month, ok, err := parseYearMonth(c)
	if err != nil {
		writeStoreError(c, err)
		return nil, false
	}
	if !ok {
		now := time.Now().In(calendar.JST)
		year, month = now.Year(), now.Month()
	}

	agg, err := h.Store.MonthlySchedule(c.Request.Context(), year, month)
	if err != nil {
		writeStoreError(c, err)
		return nil, false
	}
	return agg, true
}

// ExportCSV 月別集計を CSV でダウンロードする。列は銀行ごとに動的。
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	agg, ok := h.monthlyAggregate(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"schedule_%04d-%02d.csv\"",
		agg.Year, int(agg.Month)))

	// UTF-8 BOM（Excel で日本語を正しく開かせる）
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"引き落とし日", "曜日"}
	for _, b := range agg.Banks {
		header = append(header, b.Name)
	}
	header = append(header, "合計")
	writer.Write(header)

	for _, row := range agg.Rows {
		record := []string{row.DateKey, row.Weekday}
		for _, b := range agg.Banks {
			record = append(record, strconv.FormatInt(row.BankTotals[b.ID], 10))
		}
		record = append(record, strconv.FormatInt(row.Total, 10))
		writer.Write(record)
	}

	// 末尾に月合計行
	footer := []string{"月合計", ""}
	for _, b := range agg.Banks {
		footer = append(footer, strconv.FormatInt(agg.BankTotals[b.ID], 10))
	}
	footer = append(footer, strconv.FormatInt(agg.MonthTotal, 10))
	writer.Write(footer)
}

// ExportXLSX 月別集計を XLSX でダウンロードする。集計シートと
// 明細シートの 2 枚構成。
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	agg, ok := h.monthlyAggregate(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	sheetName := "引き落とし予定"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "ワークシートの作成に失敗しました")
		return
	}
	f.SetActiveSheet(index)

	// ---------- 集計シート ----------

	headers := []string{"引き落とし日", "曜日"}
	for _, b := range agg.Banks {
		headers = append(headers, b.Name)
	}
	headers = append(headers, "合計")
	for i, hd := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, hd)
	}

	for rowIdx, row := range agg.Rows {
		values := []interface{}{row.DateKey, row.Weekday}
		for _, b := range agg.Banks {
			values = append(values, row.BankTotals[b.ID])
		}
		values = append(values, row.Total)
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	footerRow := len(agg.Rows) + 2
	footer := []interface{}{"月合計", ""}
	for _, b := range agg.Banks {
		footer = append(footer, agg.BankTotals[b.ID])
	}
	footer = append(footer, agg.MonthTotal)
	for colIdx, v := range footer {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, footerRow)
		f.SetCellValue(sheetName, cell, v)
	}

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 6)

	// ---------- 明細シート ----------

	detailSheet := "明細"
	if _, err := f.NewSheet(detailSheet); err == nil {
		detailHeaders := []string{"引き落とし日", "銀行", "支払手段", "店名", "用途", "金額(円)"}
		for i, hd := range detailHeaders {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(detailSheet, cell, hd)
		}
		rowNum := 2
		for _, row := range agg.Rows {
			for _, item := range row.Items {
				values := []interface{}{
					row.DateKey, item.BankName, item.Instrument,
					item.StoreName, item.Usage, item.Amount,
				}
				for colIdx, v := range values {
					cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
					f.SetCellValue(detailSheet, cell, v)
				}
				rowNum++
			}
		}
		f.SetColWidth(detailSheet, "A", "B", 14)
		f.SetColWidth(detailSheet, "C", "E", 18)
	}

	// 既定で作られる Sheet1 は消す
	f.DeleteSheet("Sheet1")

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"schedule_%04d-%02d.xlsx\"",
		agg.Year, int(agg.Month)))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "エクスポートに失敗しました")
	}
}
