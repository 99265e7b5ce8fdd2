package schedule

import (
	"testing"
	"time"

	"bank-payment-schedule/internal/models"
)

func strPtr(s string) *string { return &s }

func testRefData() ([]models.Bank, []models.Card) {
	banks := []models.Bank{
		{ID: "bank-mizuho", Name: "みずほ銀行"},
		{ID: "bank-smbc", Name: "三井住友銀行"},
	}
	cards := []models.Card{
		{
			ID:                "card-main",
			Name:              "メインカード",
			BankID:            "bank-mizuho",
			ClosingDay:        "15",
			PaymentDay:        "10",
			PaymentMonthShift: 1,
			AdjustWeekend:     false,
		},
	}
	return banks, cards
}

func TestBuildMonthlyAggregateTotals(t *testing.T) {
	banks, cards := testRefData()

	// カード2件は 2025-03-05 購入 → 3月サイクル → 4/10 引き落とし。
	// 口座引き落とし1件は 4/15。月合計は 42,840 円。
	txs := []models.Transaction{
		{ID: "t1", Date: date(2025, 3, 5), Amount: 15000, PaymentType: models.PaymentCard, CardID: strPtr("card-main")},
		{ID: "t2", Date: date(2025, 3, 5), Amount: 22840, PaymentType: models.PaymentCard, CardID: strPtr("card-main")},
		{ID: "t3", Date: date(2025, 4, 15), Amount: 5000, PaymentType: models.PaymentBank, BankID: strPtr("bank-smbc")},
	}

	agg, err := BuildMonthlyAggregate(txs, banks, cards, 2025, time.April)
	if err != nil {
		t.Fatalf("BuildMonthlyAggregate: %v", err)
	}

	if agg.MonthTotal != 42840 {
		t.Errorf("MonthTotal = %d, want 42840", agg.MonthTotal)
	}
	if len(agg.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(agg.Rows))
	}

	// rows sorted ascending by date
	if agg.Rows[0].DateKey != "2025-04-10" || agg.Rows[1].DateKey != "2025-04-15" {
		t.Errorf("row order = %s, %s", agg.Rows[0].DateKey, agg.Rows[1].DateKey)
	}
	if agg.Rows[0].Total != 37840 {
		t.Errorf("row 0 total = %d, want 37840", agg.Rows[0].Total)
	}
	if agg.Rows[0].Weekday != "木" { // 2025-04-10 is Thursday
		t.Errorf("weekday label = %q, want 木", agg.Rows[0].Weekday)
	}
	if agg.Rows[0].BankTotals["bank-mizuho"] != 37840 {
		t.Errorf("per-bank breakdown = %d, want 37840", agg.Rows[0].BankTotals["bank-mizuho"])
	}
	if agg.Rows[0].BankCounts["bank-mizuho"] != 2 {
		t.Errorf("per-bank count = %d, want 2", agg.Rows[0].BankCounts["bank-mizuho"])
	}

	// 月合計 = 行合計の和 = 銀行別合計の和
	var rowSum, bankSum int64
	for _, r := range agg.Rows {
		rowSum += r.Total
	}
	for _, v := range agg.BankTotals {
		bankSum += v
	}
	if rowSum != agg.MonthTotal || bankSum != agg.MonthTotal {
		t.Errorf("total invariant broken: month=%d rows=%d banks=%d", agg.MonthTotal, rowSum, bankSum)
	}

	if len(agg.Banks) != 2 {
		t.Errorf("banks involved = %d, want 2", len(agg.Banks))
	}

	// カード取引の銀行はカード経由で解決される
	if agg.Rows[0].Items[0].BankName != "みずほ銀行" {
		t.Errorf("card bank = %q, want みずほ銀行", agg.Rows[0].Items[0].BankName)
	}
	if agg.Rows[0].Items[0].Instrument != "メインカード" {
		t.Errorf("instrument = %q", agg.Rows[0].Items[0].Instrument)
	}
	if agg.Rows[1].Items[0].Instrument != BankDebitLabel {
		t.Errorf("bank debit instrument = %q, want %q", agg.Rows[1].Items[0].Instrument, BankDebitLabel)
	}
}

func TestBuildMonthlyAggregateSkipsDanglingRefs(t *testing.T) {
	banks, cards := testRefData()
	txs := []models.Transaction{
		{ID: "ok", Date: date(2025, 4, 15), Amount: 1000, PaymentType: models.PaymentBank, BankID: strPtr("bank-smbc")},
		{ID: "bad-card", Date: date(2025, 3, 5), Amount: 2000, PaymentType: models.PaymentCard, CardID: strPtr("card-gone")},
		{ID: "bad-bank", Date: date(2025, 4, 16), Amount: 3000, PaymentType: models.PaymentBank, BankID: strPtr("bank-gone")},
		{ID: "no-ref", Date: date(2025, 4, 17), Amount: 4000, PaymentType: models.PaymentCard},
	}

	agg, err := BuildMonthlyAggregate(txs, banks, cards, 2025, time.April)
	if err != nil {
		t.Fatalf("BuildMonthlyAggregate: %v", err)
	}

	if agg.MonthTotal != 1000 {
		t.Errorf("MonthTotal = %d, want 1000 (bad rows skipped)", agg.MonthTotal)
	}
	if len(agg.Warnings) != 3 {
		t.Errorf("warnings = %d, want 3", len(agg.Warnings))
	}
}

func TestBuildMonthlyAggregateManualOverride(t *testing.T) {
	banks, cards := testRefData()

	// 手動上書きされた取引は再計算せず、保存済みの日付をそのまま使う
	txs := []models.Transaction{
		{
			ID: "manual", Date: date(2025, 3, 5), Amount: 9999,
			PaymentType: models.PaymentCard, CardID: strPtr("card-main"),
			ScheduledPayDate:   date(2025, 4, 20),
			IsScheduleEditable: true,
		},
	}

	agg, err := BuildMonthlyAggregate(txs, banks, cards, 2025, time.April)
	if err != nil {
		t.Fatalf("BuildMonthlyAggregate: %v", err)
	}
	if len(agg.Rows) != 1 || agg.Rows[0].DateKey != "2025-04-20" {
		t.Fatalf("manual date not honored: %+v", agg.Rows)
	}
}

func TestBuildMonthlyAggregateEmpty(t *testing.T) {
	banks, cards := testRefData()
	agg, err := BuildMonthlyAggregate(nil, banks, cards, 2025, time.April)
	if err != nil {
		t.Fatalf("empty aggregate must not fail: %v", err)
	}
	if len(agg.Rows) != 0 || agg.MonthTotal != 0 {
		t.Errorf("expected empty aggregate, got %+v", agg)
	}
}

func TestBuildMonthlyAggregateResolvedDateOutsideMonth(t *testing.T) {
	banks, cards := testRefData()

	// 保存済みの scheduledPayDate が4月でも、ルール再計算で5月に
	// 移る取引は4月の集計から外れる（締め日16日超え）。
	txs := []models.Transaction{
		{
			ID: "moved", Date: date(2025, 3, 20), Amount: 500,
			PaymentType: models.PaymentCard, CardID: strPtr("card-main"),
			ScheduledPayDate: date(2025, 4, 10), // stale
		},
	}
	agg, err := BuildMonthlyAggregate(txs, banks, cards, 2025, time.April)
	if err != nil {
		t.Fatalf("BuildMonthlyAggregate: %v", err)
	}
	if len(agg.Rows) != 0 {
		t.Errorf("stale stored date must not be trusted, got %d rows", len(agg.Rows))
	}

	// 再計算後の5月には現れる
	agg, err = BuildMonthlyAggregate(txs, banks, cards, 2025, time.May)
	if err != nil {
		t.Fatalf("BuildMonthlyAggregate: %v", err)
	}
	if len(agg.Rows) != 1 || agg.Rows[0].DateKey != "2025-05-10" {
		t.Errorf("re-derived date wrong: %+v", agg.Rows)
	}
}
