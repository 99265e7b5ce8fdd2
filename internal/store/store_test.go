package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/config"
	"bank-payment-schedule/internal/logger"
	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/util"

	"gorm.io/gorm"
)

const testPassword = "TestPassword1"

// newTestStore は一時ファイル上の SQLite でストアを組み立て、
// パスワードを設定して解錠済みの状態で返す。
func newTestStore(t *testing.T) (*Store, *session.Manager) {
	t.Helper()

	db, err := InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// テストでは KDF を軽くする
	mgr, err := session.NewManager(NewCredentialStore(db), 1000, 4, time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	st, err := Open(db, mgr, logger.NewWithWriter(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := mgr.Setup(testPassword); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return st, mgr
}

func jdate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, calendar.JST)
}

func createTestBank(t *testing.T, st *Store, name string) *models.Bank {
	t.Helper()
	b := &models.Bank{Name: name, Memo: "テスト用"}
	if err := st.CreateBank(context.Background(), b); err != nil {
		t.Fatalf("CreateBank(%s): %v", name, err)
	}
	return b
}

func createTestCard(t *testing.T, st *Store, bankID string) *models.Card {
	t.Helper()
	c := &models.Card{
		Name:              "メインカード",
		BankID:            bankID,
		ClosingDay:        "15",
		PaymentDay:        "10",
		PaymentMonthShift: 1,
		AdjustWeekend:     false,
	}
	if err := st.CreateCard(context.Background(), c); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	return c
}

func TestBankCRUDEncryptedAtRest(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	if b.ID == "" || b.CreatedAt.IsZero() {
		t.Fatal("id and created_at must be assigned")
	}

	// 暗号化列には平文が残らない
	var raw models.Bank
	if err := st.db.First(&raw, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("raw load: %v", err)
	}
	if raw.NameEnc == "" || raw.NameEnc == "みずほ銀行" {
		t.Errorf("name must be stored encrypted, got %q", raw.NameEnc)
	}
	if raw.Name != "" {
		t.Errorf("plaintext name must not be persisted, got %q", raw.Name)
	}

	got, err := st.GetBank(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBank: %v", err)
	}
	if got.Name != "みずほ銀行" || got.Memo != "テスト用" {
		t.Errorf("decrypted bank = %q / %q", got.Name, got.Memo)
	}

	// 更新後も id / created_at は不変
	updated, err := st.UpdateBank(ctx, b.ID, "三井住友銀行", "")
	if err != nil {
		t.Fatalf("UpdateBank: %v", err)
	}
	if updated.ID != b.ID || !updated.CreatedAt.Equal(got.CreatedAt) {
		t.Error("id and created_at must be immutable")
	}
	if updated.Name != "三井住友銀行" {
		t.Errorf("updated name = %q", updated.Name)
	}

	if err := st.DeleteBank(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBank: %v", err)
	}
	if _, err := st.GetBank(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBank after delete = %v, want ErrNotFound", err)
	}
}

func TestLockedStoreRejectsDataOps(t *testing.T) {
	st, mgr := newTestStore(t)
	ctx := context.Background()

	createTestBank(t, st, "みずほ銀行")
	if err := mgr.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	var se *session.StateError
	if err := st.CreateBank(ctx, &models.Bank{Name: "ゆうちょ銀行"}); !errors.As(err, &se) {
		t.Errorf("CreateBank while locked = %v, want StateError", err)
	}
	if _, err := st.ListBanks(ctx); !errors.As(err, &se) {
		t.Errorf("ListBanks while locked = %v, want StateError", err)
	}
	if _, err := st.ExportSnapshot(ctx); !errors.As(err, &se) {
		t.Errorf("ExportSnapshot while locked = %v, want StateError", err)
	}
}

func TestLockUnlockReproducesPlaintext(t *testing.T) {
	st, mgr := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	card := createTestCard(t, st, b.ID)
	tx := &models.Transaction{
		Date:        jdate(2025, 4, 10),
		Amount:      15000,
		StoreName:   "家電量販店",
		PaymentType: models.PaymentCard,
		CardID:      &card.ID,
		Memo:        "новый телевизор",
	}
	if err := st.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := mgr.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := mgr.Unlock(testPassword); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	got, err := st.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction after unlock: %v", err)
	}
	if got.Amount != 15000 || got.StoreName != "家電量販店" || got.Memo != "новый телевизор" {
		t.Errorf("plaintext not reproduced: %+v", got)
	}
}

func TestDeleteRejectsWhileReferenced(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	card := createTestCard(t, st, b.ID)
	tx := &models.Transaction{
		Date:        jdate(2025, 4, 10),
		Amount:      1200,
		PaymentType: models.PaymentCard,
		CardID:      &card.ID,
	}
	if err := st.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	var re *ReferenceError
	if err := st.DeleteBank(ctx, b.ID); !errors.As(err, &re) {
		t.Fatalf("DeleteBank while referenced = %v, want ReferenceError", err)
	}
	if err := st.DeleteCard(ctx, card.ID); !errors.As(err, &re) {
		t.Fatalf("DeleteCard while referenced = %v, want ReferenceError", err)
	}

	// 依存を外せば順に消せる
	if err := st.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := st.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if err := st.DeleteBank(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBank: %v", err)
	}
}

func TestTransactionScheduleResolved(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	card := createTestCard(t, st, b.ID) // 締め15日・支払10日・翌月

	// 締め日超え：4/16 購入 → 5月サイクル → 6/10 引き落とし
	tx := &models.Transaction{
		Date:        jdate(2025, 4, 16),
		Amount:      5000,
		PaymentType: models.PaymentCard,
		CardID:      &card.ID,
	}
	if err := st.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if want := jdate(2025, 6, 10); !tx.ScheduledPayDate.Equal(want) {
		t.Errorf("scheduled = %s, want %s",
			tx.ScheduledPayDate.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// 口座引き落としは当日
	debit := &models.Transaction{
		Date:        jdate(2025, 4, 15),
		Amount:      3000,
		PaymentType: models.PaymentBank,
		BankID:      &b.ID,
	}
	if err := st.CreateTransaction(ctx, debit); err != nil {
		t.Fatalf("CreateTransaction(debit): %v", err)
	}
	if want := jdate(2025, 4, 15); !debit.ScheduledPayDate.Equal(want) {
		t.Errorf("debit scheduled = %s, want %s",
			debit.ScheduledPayDate.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// 手動上書きは再計算されない
	manual := &models.Transaction{
		Date:               jdate(2025, 4, 16),
		Amount:             8000,
		PaymentType:        models.PaymentCard,
		CardID:             &card.ID,
		IsScheduleEditable: true,
		ScheduledPayDate:   jdate(2025, 7, 1),
	}
	if err := st.CreateTransaction(ctx, manual); err != nil {
		t.Fatalf("CreateTransaction(manual): %v", err)
	}
	if want := jdate(2025, 7, 1); !manual.ScheduledPayDate.Equal(want) {
		t.Errorf("manual scheduled = %s, want %s",
			manual.ScheduledPayDate.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestCardRuleChangeRecomputesSchedules(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	card := createTestCard(t, st, b.ID)

	auto := &models.Transaction{
		Date:        jdate(2025, 4, 10),
		Amount:      5000,
		PaymentType: models.PaymentCard,
		CardID:      &card.ID,
	}
	manual := &models.Transaction{
		Date:               jdate(2025, 4, 10),
		Amount:             7000,
		PaymentType:        models.PaymentCard,
		CardID:             &card.ID,
		IsScheduleEditable: true,
		ScheduledPayDate:   jdate(2025, 8, 1),
	}
	for _, tx := range []*models.Transaction{auto, manual} {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	// 支払日を 10日 → 27日 に変更
	card.PaymentDay = "27"
	if _, err := st.UpdateCard(ctx, card); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}

	got, err := st.GetTransaction(ctx, auto.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if want := jdate(2025, 5, 27); !got.ScheduledPayDate.Equal(want) {
		t.Errorf("recomputed = %s, want %s",
			got.ScheduledPayDate.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	got, err = st.GetTransaction(ctx, manual.ID)
	if err != nil {
		t.Fatalf("GetTransaction(manual): %v", err)
	}
	if want := jdate(2025, 8, 1); !got.ScheduledPayDate.Equal(want) {
		t.Errorf("manual override must survive rule change, got %s",
			got.ScheduledPayDate.Format("2006-01-02"))
	}
}

func TestTransactionValidation(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	card := createTestCard(t, st, b.ID)

	cases := []struct {
		name  string
		tx    models.Transaction
		field string
	}{
		{
			name:  "zero amount",
			tx:    models.Transaction{Date: jdate(2025, 4, 1), Amount: 0, PaymentType: models.PaymentCard, CardID: &card.ID},
			field: "amount",
		},
		{
			name:  "card payment without card",
			tx:    models.Transaction{Date: jdate(2025, 4, 1), Amount: 100, PaymentType: models.PaymentCard},
			field: "card_id",
		},
		{
			name:  "card payment with bank id",
			tx:    models.Transaction{Date: jdate(2025, 4, 1), Amount: 100, PaymentType: models.PaymentCard, CardID: &card.ID, BankID: &b.ID},
			field: "bank_id",
		},
		{
			name:  "bank debit with card id",
			tx:    models.Transaction{Date: jdate(2025, 4, 1), Amount: 100, PaymentType: models.PaymentBank, BankID: &b.ID, CardID: &card.ID},
			field: "card_id",
		},
		{
			name:  "unknown payment type",
			tx:    models.Transaction{Date: jdate(2025, 4, 1), Amount: 100, PaymentType: "cash"},
			field: "payment_type",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tx := c.tx
			err := st.CreateTransaction(ctx, &tx)
			var fe *util.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want FieldError", err)
			}
			if fe.Field != c.field {
				t.Errorf("field = %q, want %q", fe.Field, c.field)
			}
		})
	}
}

func TestMonthlyScheduleFromStore(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b1 := createTestBank(t, st, "みずほ銀行")
	b2 := createTestBank(t, st, "三井住友銀行")
	card := createTestCard(t, st, b1.ID)

	for _, tx := range []*models.Transaction{
		{Date: jdate(2025, 3, 5), Amount: 15000, PaymentType: models.PaymentCard, CardID: &card.ID},
		{Date: jdate(2025, 3, 5), Amount: 22840, PaymentType: models.PaymentCard, CardID: &card.ID},
		{Date: jdate(2025, 4, 15), Amount: 5000, PaymentType: models.PaymentBank, BankID: &b2.ID},
	} {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	agg, err := st.MonthlySchedule(ctx, 2025, time.April)
	if err != nil {
		t.Fatalf("MonthlySchedule: %v", err)
	}
	if agg.MonthTotal != 42840 {
		t.Errorf("MonthTotal = %d, want 42840", agg.MonthTotal)
	}
	if len(agg.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(agg.Rows))
	}
	if len(agg.Banks) != 2 {
		t.Errorf("banks involved = %d, want 2", len(agg.Banks))
	}
}

func TestAuditRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if err := st.WriteAudit(ctx, "POST", "/api/transactions", "POST /api/transactions {}", "127.0.0.1", "test-agent"); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}

	// 暗号化されて保存されている
	var raw models.AuditLog
	if err := st.db.First(&raw).Error; err != nil {
		t.Fatalf("raw audit load: %v", err)
	}
	if raw.PathEnc == "/api/transactions" {
		t.Error("audit path must be stored encrypted")
	}

	entries, err := st.ListAudit(ctx, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "/api/transactions" {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestChangePasswordRewrapsCiphertexts(t *testing.T) {
	st, mgr := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	var before models.Bank
	if err := st.db.First(&before, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("raw load: %v", err)
	}

	if err := st.ChangePassword(ctx, testPassword, "NewPassword1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// 暗号文は新しい鍵で書き直されている
	var after models.Bank
	if err := st.db.First(&after, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("raw load after: %v", err)
	}
	if after.NameEnc == before.NameEnc {
		t.Error("ciphertext must change when the key rotates")
	}

	// 新パスワードで解錠し直しても平文が戻る
	if err := mgr.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := mgr.Unlock("NewPassword1"); err != nil {
		t.Fatalf("Unlock with new password: %v", err)
	}
	got, err := st.GetBank(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBank: %v", err)
	}
	if got.Name != "みずほ銀行" {
		t.Errorf("name after rewrap = %q", got.Name)
	}
}

// 資格情報の書き込みが rewrap と同一トランザクションに入っていることの
// 検証。途中で失敗したら暗号文は旧鍵のまま残り、旧パスワードで読める。
func TestChangePasswordFailureRollsBackRewrap(t *testing.T) {
	st, mgr := newTestStore(t)
	ctx := context.Background()

	b := createTestBank(t, st, "みずほ銀行")
	var before models.Bank
	if err := st.db.First(&before, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("raw load: %v", err)
	}

	// 本物と同じ経路で rewrap と資格情報を書き込んだ後、同一
	// トランザクション内の後続書き込みが失敗したと想定する
	boom := errors.New("disk full")
	err := mgr.ChangePassword(testPassword, "NewPassword1", func(oldKey, newKey []byte, cred *models.Credential) error {
		return st.db.Transaction(func(tx *gorm.DB) error {
			if err := st.reencryptAllTx(tx, oldKey, newKey); err != nil {
				return err
			}
			if err := NewCredentialStore(tx).Save(cred); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ChangePassword = %v, want boom", err)
	}

	// 暗号文はロールバックされ、現在の鍵でそのまま読める
	var after models.Bank
	if err := st.db.First(&after, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("raw load after: %v", err)
	}
	if after.NameEnc != before.NameEnc {
		t.Error("failed change must roll the ciphertexts back")
	}
	got, err := st.GetBank(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBank after failed change: %v", err)
	}
	if got.Name != "みずほ銀行" {
		t.Errorf("name after failed change = %q", got.Name)
	}

	// 施錠し直しても旧パスワードだけが有効
	if err := mgr.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := mgr.Unlock("NewPassword1"); !errors.Is(err, session.ErrAuthentication) {
		t.Fatalf("Unlock with rejected password = %v, want ErrAuthentication", err)
	}
	if err := mgr.Unlock(testPassword); err != nil {
		t.Fatalf("Unlock with current password: %v", err)
	}
	if got, err := st.GetBank(ctx, b.ID); err != nil || got.Name != "みずほ銀行" {
		t.Fatalf("GetBank after relock = %v, %v", got, err)
	}
}

// 確認: gorm の参照カウントが他レコードを巻き込まないこと
func TestDeleteBankOnlyCountsOwnRefs(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	b1 := createTestBank(t, st, "みずほ銀行")
	b2 := createTestBank(t, st, "三井住友銀行")
	createTestCard(t, st, b1.ID)

	// b2 は誰からも参照されていないので消せる
	if err := st.DeleteBank(ctx, b2.ID); err != nil {
		t.Fatalf("DeleteBank(b2): %v", err)
	}
	var gone models.Bank
	if err := st.db.First(&gone, "id = ?", b2.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("b2 should be gone, got %v", err)
	}
}
