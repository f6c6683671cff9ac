package core

import (
	"errors"
	"time"
)

type (
	// User is created and owned by the ledger backend; the client only
	// references it.
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Group struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	// Activity is one logged expense, the canonical source of every derived
	// figure. Amount is in minor currency units and immutable once created.
	Activity struct {
		ID          int64     `json:"id"`
		GroupID     int64     `json:"group_id"`
		PayerID     int64     `json:"payer_id"`
		Amount      int64     `json:"amount"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// Split is one participant's share of a single expense, produced by the
	// allocator and sent to the backend as part of the expense payload.
	Split struct {
		UserID     int64 `json:"user_id"`
		AmountOwed int64 `json:"amount_owed"`
	}

	// Balance is a user's net position within a group, computed by the
	// backend. Positive means the user is owed money.
	Balance struct {
		UserID     int64 `json:"user_id"`
		NetBalance int64 `json:"net_balance"`
	}

	// Settlement is one suggested payment closing part of the group's debt
	// graph. The backend guarantees internal consistency; the client only
	// renders it.
	Settlement struct {
		FromUserID int64 `json:"from_user_id"`
		ToUserID   int64 `json:"to_user_id"`
		Amount     int64 `json:"amount"`
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrParseAmount      = errors.New("invalid amount format")
	ErrNoParticipants   = errors.New("at least one participant is required")
	ErrSplitMismatch    = errors.New("custom splits must sum exactly to the total amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidEmail     = errors.New("invalid email address")
)

// BalanceStatus is the display label for a balance's sign.
type BalanceStatus string

const (
	StatusGetsBack BalanceStatus = "gets back"
	StatusOwes     BalanceStatus = "owes"
	StatusSettled  BalanceStatus = "settled"
)

func (b Balance) Status() BalanceStatus {
	switch {
	case b.NetBalance > 0:
		return StatusGetsBack
	case b.NetBalance < 0:
		return StatusOwes
	default:
		return StatusSettled
	}
}

// Magnitude returns the displayed absolute value of the net balance.
func (b Balance) Magnitude() int64 {
	if b.NetBalance < 0 {
		return -b.NetBalance
	}
	return b.NetBalance
}
