package models

import "time"

// PaymentType discriminates how a transaction is settled.
type PaymentType string

const (
	PaymentCard PaymentType = "card" // カード払い：カードの締め日ルールで引き落とし日が決まる
	PaymentBank PaymentType = "bank" // 口座引き落とし：取引日当日（任意で営業日補正）
)

// Transaction 一件の購入記録。金額・店名・用途・メモは暗号化列に保存し、
// 範囲検索に使う日付・外部キー・フラグは平文のまま索引する。
//
// ScheduledPayDate は計算結果の非正規化キャッシュで、Date / PaymentType /
// CardID / カードの請求ルールが変わるたびに再計算される。ただし
// IsScheduleEditable が true の間はユーザーの手動上書きを優先し、
// 再計算は抑止される。
type Transaction struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	Date             time.Time   `gorm:"index;not null" json:"date"`
	Amount           int64       `gorm:"-" json:"amount"` // 円（整数のみ、小数なし）
	StoreName        string      `gorm:"-" json:"store_name"`
	Usage            string      `gorm:"-" json:"usage"`
	PaymentType      PaymentType `gorm:"size:8;index;not null" json:"payment_type"`
	CardID           *string     `gorm:"size:36;index" json:"card_id,omitempty"` // paymentType=card のときのみ
	BankID           *string     `gorm:"size:36;index" json:"bank_id,omitempty"` // paymentType=bank のときのみ
	ScheduledPayDate time.Time   `gorm:"index;not null" json:"scheduled_pay_date"`
	// AdjustWeekend applies to bank-debit transactions only; card
	// transactions follow the card's own flag.
	AdjustWeekend      bool      `gorm:"not null;default:false" json:"adjust_weekend"`
	IsScheduleEditable bool      `gorm:"not null;default:false" json:"is_schedule_editable"`
	Memo               string    `gorm:"-" json:"memo"`
	AmountEnc          string    `gorm:"size:256" json:"-"`
	StoreNameEnc       string    `gorm:"size:512" json:"-"`
	UsageEnc           string    `gorm:"size:512" json:"-"`
	MemoEnc            string    `gorm:"size:1024" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}
