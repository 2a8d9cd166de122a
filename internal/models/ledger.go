package models

import (
	"time"
)

// Balance is the materialized point total of an account. It is derived from
// the transactions table and only ever written by the ledger.
type Balance struct {
	AccountID int64     `json:"account_id" db:"account_id"`
	Value     int64     `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BalanceDrift records an account whose cached balance disagreed with the ledger
type BalanceDrift struct {
	AccountID int64 `json:"account_id"`
	Cached    int64 `json:"cached"`
	Ledger    int64 `json:"ledger"`
}
