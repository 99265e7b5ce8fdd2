package models

import "time"

// Card クレジットカードと締め日・支払日の設定。必ず一つの Bank に属する。
// ClosingDay / PaymentDay は "月末" か "1"〜"31" の文字列で、保存前に
// schedule 側で検証される。請求ルールは再計算に必要なので平文のまま。
type Card struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Name              string    `gorm:"-" json:"name"`
	BankID            string    `gorm:"size:36;index;not null" json:"bank_id"`
	ClosingDay        string    `gorm:"size:8;not null" json:"closing_day"`
	PaymentDay        string    `gorm:"size:8;not null" json:"payment_day"`
	PaymentMonthShift int       `gorm:"not null;default:1" json:"payment_month_shift"` // 0=当月, 1=翌月, 2=翌々月
	AdjustWeekend     bool      `gorm:"not null;default:true" json:"adjust_weekend"`
	Memo              string    `gorm:"-" json:"memo"`
	NameEnc           string    `gorm:"size:512" json:"-"`
	MemoEnc           string    `gorm:"size:1024" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}
