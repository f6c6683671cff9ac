package services

import (
	"context"
	"fmt"
	"strings"

	"splitview/internal/api"
	"splitview/internal/core"
	"splitview/internal/log"
)

// Submitter is the write side of the backend client, plus the reads the
// submission path needs to derive EQUAL participants.
type Submitter interface {
	AddExpense(ctx context.Context, groupID int64, req api.ExpenseRequest) (core.Activity, error)
	CreateGroup(ctx context.Context, name, description string) (core.Group, error)
	CreateUser(ctx context.Context, name, email string) (core.User, error)
	Balances(ctx context.Context, groupID int64) ([]core.Balance, error)
	Users(ctx context.Context) ([]core.User, error)
}

// EventPublisher emits expense lifecycle events. Implemented by
// events.Publisher; may be absent entirely.
type EventPublisher interface {
	PublishExpenseLogged(ctx context.Context, activityID, groupID, payerID, amountMinor int64) error
}

// ExpenseInput is one expense form submission: the amount and any custom
// entries arrive as display-decimal strings exactly as typed.
type ExpenseInput struct {
	GroupID     int64
	PayerID     int64
	Amount      string
	Description string
	Policy      core.SplitPolicy

	// Participants applies to EQUAL. When empty, the participant set is
	// derived from the group's current balance holders.
	Participants []int64

	// Entries applies to CUSTOM.
	Entries []core.CustomEntry
}

// LedgerService runs the submission path: validate, allocate, submit,
// announce. Validation failures surface before any network call and abort
// the submission entirely.
type LedgerService struct {
	backend Submitter
	events  EventPublisher
	logger  *log.Logger
}

func NewLedgerService(backend Submitter, events EventPublisher, logger *log.Logger) *LedgerService {
	return &LedgerService{
		backend: backend,
		events:  events,
		logger:  logger.WithComponent(log.ComponentLedger),
	}
}

// SubmitExpense converts one expense form into an allocator request, runs
// it, and posts the resulting splits to the backend. The returned activity
// is the backend's accepted record.
func (s *LedgerService) SubmitExpense(ctx context.Context, in ExpenseInput) (core.Activity, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return core.Activity{}, core.ErrEmptyDescription
	}

	amountMinor, err := core.ParseDecimalToMinor(in.Amount)
	if err != nil {
		return core.Activity{}, err
	}
	if amountMinor <= 0 {
		return core.Activity{}, core.ErrInvalidAmount
	}

	participants := in.Participants
	if in.Policy == core.PolicyEqual && len(participants) == 0 {
		participants, err = s.equalParticipants(ctx, in.GroupID, in.PayerID)
		if err != nil {
			return core.Activity{}, err
		}
	}

	splits, err := core.SplitRequest{
		AmountMinor:    amountMinor,
		PayerID:        in.PayerID,
		Policy:         in.Policy,
		ParticipantIDs: participants,
		Entries:        in.Entries,
	}.Allocate()
	if err != nil {
		return core.Activity{}, err
	}

	activity, err := s.backend.AddExpense(ctx, in.GroupID, api.ExpenseRequest{
		PayerID:     in.PayerID,
		Amount:      amountMinor,
		Description: description,
		Splits:      splits,
	})
	if err != nil {
		return core.Activity{}, err
	}

	s.logger.InfoContext(ctx, "expense submitted",
		log.FieldGroupID, in.GroupID,
		log.FieldPayerID, in.PayerID,
		log.FieldAmount, amountMinor,
		log.FieldPolicy, string(in.Policy),
		log.FieldSplits, len(splits))

	if s.events != nil {
		if err := s.events.PublishExpenseLogged(ctx, activity.ID, in.GroupID, in.PayerID, amountMinor); err != nil {
			// Best-effort: the backend accepted the expense.
			s.logger.WarnContext(ctx, "expense event publish failed", log.FieldError, err)
		}
	}

	return activity, nil
}

// equalParticipants derives the EQUAL participant set from the group's
// current balance holders. A group with no balances yet falls back to the
// payer plus one other known user when available, so the very first expense
// is still split between two people.
func (s *LedgerService) equalParticipants(ctx context.Context, groupID, payerID int64) ([]int64, error) {
	balances, err := s.backend.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(balances) > 0 {
		ids := make([]int64, 0, len(balances))
		for _, b := range balances {
			ids = append(ids, b.UserID)
		}
		return ids, nil
	}

	users, err := s.backend.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID != payerID {
			return []int64{u.ID}, nil
		}
	}
	return nil, nil
}

// CreateGroup validates and forwards a group creation.
func (s *LedgerService) CreateGroup(ctx context.Context, name, description string) (core.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Group{}, fmt.Errorf("group: %w", core.ErrEmptyName)
	}
	return s.backend.CreateGroup(ctx, name, strings.TrimSpace(description))
}

// CreateUser validates and forwards a user creation.
func (s *LedgerService) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.User{}, fmt.Errorf("user: %w", core.ErrEmptyName)
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return core.User{}, fmt.Errorf("%w: %q", core.ErrInvalidEmail, email)
	}
	return s.backend.CreateUser(ctx, name, email)
}
