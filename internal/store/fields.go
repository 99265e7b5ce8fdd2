package store

import "fmt"

// fieldSpec declares, per record type, which fields are stored encrypted
// and which stay in plaintext for indexed queries. The mapping is static;
// ValidateFieldSpecs checks once at Open that the two sets are disjoint.
type fieldSpec struct {
	Encrypted []string
	Plaintext []string
}

var recordFields = map[string]fieldSpec{
	"bank": {
		Encrypted: []string{"name", "memo"},
		Plaintext: []string{"id", "created_at"},
	},
	"card": {
		Encrypted: []string{"name", "memo"},
		Plaintext: []string{"id", "bank_id", "closing_day", "payment_day", "payment_month_shift", "adjust_weekend", "created_at"},
	},
	"transaction": {
		Encrypted: []string{"amount", "store_name", "usage", "memo"},
		Plaintext: []string{"id", "date", "payment_type", "card_id", "bank_id", "scheduled_pay_date", "adjust_weekend", "is_schedule_editable", "created_at"},
	},
}

// ValidateFieldSpecs rejects any record type whose encrypted and plaintext
// field sets overlap. A field in both sets would leak ciphertext-protected
// data through the plaintext column.
func ValidateFieldSpecs() error {
	for record, spec := range recordFields {
		seen := make(map[string]bool, len(spec.Encrypted))
		for _, f := range spec.Encrypted {
			if seen[f] {
				return fmt.Errorf("record %s: duplicate encrypted field %q", record, f)
			}
			seen[f] = true
		}
		for _, f := range spec.Plaintext {
			if seen[f] {
				return fmt.Errorf("record %s: field %q is both encrypted and plaintext", record, f)
			}
		}
	}
	return nil
}
