package schedule

import (
	"fmt"
	"sort"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BankDebitLabel is the instrument label shown for direct bank debits.
const BankDebitLabel = "自動引き落とし"

var jaWeekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// ReferenceWarning marks a transaction that was skipped during
// aggregation because it references a missing card or bank. Skipping is
// per-row: the rest of the aggregate is still produced.
type ReferenceWarning struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// ScheduleItem is a read-only projection of one transaction on its
// resolved payment date. Never persisted.
type ScheduleItem struct {
	TransactionID string             `json:"transaction_id"`
	Date          time.Time          `json:"date"`
	Amount        int64              `json:"amount"`
	StoreName     string             `json:"store_name,omitempty"`
	Usage         string             `json:"usage,omitempty"`
	PaymentType   models.PaymentType `json:"payment_type"`
	BankID        string             `json:"bank_id"`
	BankName      string             `json:"bank_name"`
	CardID        string             `json:"card_id,omitempty"`
	CardName      string             `json:"card_name,omitempty"`
	Instrument    string             `json:"instrument"` // card name or 自動引き落とし
}

// BankRef identifies a bank that appears somewhere in the aggregate,
// for dynamic column generation by the consumer.
type BankRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DayRow is one payment date with its per-bank breakdown.
type DayRow struct {
	Date       time.Time        `json:"date"`
	DateKey    string           `json:"date_key"` // YYYY-MM-DD
	Weekday    string           `json:"weekday"`  // 日〜土
	Items      []ScheduleItem   `json:"items"`
	BankTotals map[string]int64 `json:"bank_totals"` // bankID -> amount
	BankCounts map[string]int   `json:"bank_counts"` // bankID -> item count
	Total      int64            `json:"total"`
	SortKey    int64            `json:"sort_key"` // epoch seconds of the date
}

// MonthlyAggregate is the bank × date cross-tab for one month.
type MonthlyAggregate struct {
	Year       int                `json:"year"`
	Month      time.Month         `json:"month"`
	Rows       []DayRow           `json:"rows"`
	BankTotals map[string]int64   `json:"bank_totals"`
	MonthTotal int64              `json:"month_total"`
	Banks      []BankRef          `json:"banks"`
	Warnings   []ReferenceWarning `json:"warnings,omitempty"`
}

// BuildMonthlyAggregate groups transactions by resolved payment date and
// computes per-bank subtotals plus the month grand total.
//
// Each transaction's scheduled date is re-derived from the current card
// rules rather than trusted from the stored value, unless the user has
// manually overridden it (IsScheduleEditable). Transactions whose resolved
// date falls outside (year, month), or whose card/bank reference is
// dangling, are skipped; dangling references are surfaced as warnings.
func BuildMonthlyAggregate(txs []models.Transaction, banks []models.Bank, cards []models.Card, year int, month time.Month) (*MonthlyAggregate, error) {
	bankByID := make(map[string]*models.Bank, len(banks))
	for i := range banks {
		bankByID[banks[i].ID] = &banks[i]
	}
	cardByID := make(map[string]*models.Card, len(cards))
	for i := range cards {
		cardByID[cards[i].ID] = &cards[i]
	}

	agg := &MonthlyAggregate{
		Year:       year,
		Month:      month,
		Rows:       []DayRow{},
		BankTotals: map[string]int64{},
		Banks:      []BankRef{},
	}

	rowByDate := make(map[string]*DayRow)

	for i := range txs {
		tx := &txs[i]

		item, warn := resolveItem(tx, bankByID, cardByID)
		if warn != nil {
			agg.Warnings = append(agg.Warnings, *warn)
			continue
		}
		if item.Date.Year() != year || item.Date.Month() != month {
			continue
		}

		key := item.Date.Format("2006-01-02")
		row, ok := rowByDate[key]
		if !ok {
			row = &DayRow{
				Date:       item.Date,
				DateKey:    key,
				Weekday:    jaWeekdays[item.Date.Weekday()],
				BankTotals: map[string]int64{},
				BankCounts: map[string]int{},
				SortKey:    item.Date.Unix(),
			}
			rowByDate[key] = row
		}

		row.Items = append(row.Items, item)
		row.BankTotals[item.BankID] += item.Amount
		row.BankCounts[item.BankID]++
		row.Total += item.Amount

		agg.BankTotals[item.BankID] += item.Amount
		agg.MonthTotal += item.Amount
	}

	for _, row := range rowByDate {
		agg.Rows = append(agg.Rows, *row)
	}
	sort.Slice(agg.Rows, func(i, j int) bool { return agg.Rows[i].SortKey < agg.Rows[j].SortKey })

	// banks that actually appear, ordered by Japanese collation
	for id := range agg.BankTotals {
		if b, ok := bankByID[id]; ok {
			agg.Banks = append(agg.Banks, BankRef{ID: b.ID, Name: b.Name})
		}
	}
	c := collate.New(language.Japanese)
	sort.Slice(agg.Banks, func(i, j int) bool {
		return c.CompareString(agg.Banks[i].Name, agg.Banks[j].Name) < 0
	})

	// checked invariant: grand total == Σ row totals == Σ bank totals
	var rowSum, bankSum int64
	for i := range agg.Rows {
		rowSum += agg.Rows[i].Total
	}
	for _, v := range agg.BankTotals {
		bankSum += v
	}
	if rowSum != agg.MonthTotal || bankSum != agg.MonthTotal {
		return nil, fmt.Errorf("aggregate totals diverged: month=%d rows=%d banks=%d", agg.MonthTotal, rowSum, bankSum)
	}

	return agg, nil
}

// resolveItem re-derives the scheduled date for tx and resolves its bank
// and card names. A nil item with a warning means the row is skipped.
func resolveItem(tx *models.Transaction, bankByID map[string]*models.Bank, cardByID map[string]*models.Card) (ScheduleItem, *ReferenceWarning) {
	item := ScheduleItem{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		StoreName:     tx.StoreName,
		Usage:         tx.Usage,
		PaymentType:   tx.PaymentType,
	}

	switch tx.PaymentType {
	case models.PaymentCard:
		if tx.CardID == nil {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: "card transaction without card_id"}
		}
		card, ok := cardByID[*tx.CardID]
		if !ok {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("card %s not found", *tx.CardID)}
		}
		bank, ok := bankByID[card.BankID]
		if !ok {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("bank %s not found", card.BankID)}
		}
		item.CardID = card.ID
		item.CardName = card.Name
		item.BankID = bank.ID
		item.BankName = bank.Name
		item.Instrument = card.Name

		if tx.IsScheduleEditable {
			item.Date = calendar.DateOf(tx.ScheduledPayDate)
			return item, nil
		}
		rule, err := RuleForCard(card)
		if err != nil {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("card %s: %v", card.ID, err)}
		}
		item.Date = rule.Compute(tx.Date).ScheduledDate
		return item, nil

	case models.PaymentBank:
		if tx.BankID == nil {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: "bank transaction without bank_id"}
		}
		bank, ok := bankByID[*tx.BankID]
		if !ok {
			return item, &ReferenceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("bank %s not found", *tx.BankID)}
		}
		item.BankID = bank.ID
		item.BankName = bank.Name
		item.Instrument = BankDebitLabel

		if tx.IsScheduleEditable {
			item.Date = calendar.DateOf(tx.ScheduledPayDate)
			return item, nil
		}
		item.Date = BankDebit(tx.Date, tx.AdjustWeekend).ScheduledDate
		return item, nil

	default:
		return item, &ReferenceWarning{TransactionID: tx.ID, Reason: fmt.Sprintf("unknown payment type %q", tx.PaymentType)}
	}
}
