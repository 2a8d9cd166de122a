package models

import (
	"time"
)

// Transaction is an immutable transfer of dundies from sender to recipient
type Transaction struct {
	ID          int64     `json:"id" db:"id"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id"`
	SenderID    int64     `json:"sender_id" db:"sender_id"`
	Value       int64     `json:"value" db:"value"`
	CreatedAt   time.Time `json:"date" db:"created_at"`
}

// TransactionView is a transaction with both participants resolved to usernames
type TransactionView struct {
	ID          int64     `json:"id" db:"id"`
	Value       int64     `json:"value" db:"value"`
	CreatedAt   time.Time `json:"date" db:"created_at"`
	RecipientID int64     `json:"-" db:"recipient_id"`
	SenderID    int64     `json:"-" db:"sender_id"`
	Recipient   string    `json:"user" db:"recipient"`
	Sender      string    `json:"from_user" db:"sender"`
}

// Page is one page of a paginated listing
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// NewPage computes the page count for total items at the given page size.
func NewPage[T any](items []T, total, page, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Page[T]{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}
