package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"splitview/internal/api"
	"splitview/internal/core"
	"splitview/internal/log"
	"splitview/internal/services"
	"splitview/internal/settings"
)

// ViewProvider serves the cached display views.
type ViewProvider interface {
	Dashboard(ctx context.Context) (services.DashboardView, error)
	Activity(ctx context.Context) (services.ActivityView, error)
	GroupDetail(ctx context.Context, groupID int64) (services.GroupDetailView, error)
	Users(ctx context.Context) (services.UsersView, error)
	Invalidate(groupID int64)
	InvalidateLists()
	InvalidateUsers()
	InvalidateAll()
}

// LedgerWriter handles the write path against the backend.
type LedgerWriter interface {
	SubmitExpense(ctx context.Context, in services.ExpenseInput) (core.Activity, error)
	CreateGroup(ctx context.Context, name, description string) (core.Group, error)
	CreateUser(ctx context.Context, name, email string) (core.User, error)
}

// PreferenceStore reads and writes the persisted display preferences.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type handlers struct {
	views  ViewProvider
	ledger LedgerWriter
	prefs  PreferenceStore
	logger *log.Logger
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) activity(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.Activity(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) groupDetail(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	view, err := h.views.GroupDetail(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.Users(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}
	group, err := h.ledger.CreateGroup(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.InvalidateLists()
	writeJSON(w, http.StatusCreated, group)
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.ledger.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.InvalidateLists()
	writeJSON(w, http.StatusCreated, user)
}

type splitEntry struct {
	UserID int64  `json:"user_id"`
	Amount string `json:"amount"`
}

// submitExpenseRequest carries the expense form as typed: the amount and any
// custom split amounts stay display-decimal strings until the allocator
// converts them.
type submitExpenseRequest struct {
	PayerID      int64        `json:"payer_id"`
	Amount       string       `json:"amount"`
	Description  string       `json:"description"`
	SplitType    string       `json:"split_type"`
	Participants []int64      `json:"participants,omitempty"`
	Splits       []splitEntry `json:"splits,omitempty"`
}

func (h *handlers) submitExpense(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req submitExpenseRequest
	if !decode(w, r, &req) {
		return
	}

	policy := core.SplitPolicy(req.SplitType)
	if policy == "" {
		policy = core.PolicyEqual
	}
	entries := make([]core.CustomEntry, 0, len(req.Splits))
	for _, s := range req.Splits {
		entries = append(entries, core.CustomEntry{UserID: s.UserID, Amount: s.Amount})
	}

	activity, err := h.ledger.SubmitExpense(r.Context(), services.ExpenseInput{
		GroupID:      groupID,
		PayerID:      req.PayerID,
		Amount:       req.Amount,
		Description:  req.Description,
		Policy:       policy,
		Participants: req.Participants,
		Entries:      entries,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.views.Invalidate(groupID)
	writeJSON(w, http.StatusCreated, activity)
}

type settingsResponse struct {
	Currency  string `json:"currency"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var out settingsResponse
	var err error
	if out.Currency, err = h.prefs.Get(ctx, settings.KeyCurrency); err != nil {
		h.fail(w, r, err)
		return
	}
	if out.UserName, err = h.prefs.Get(ctx, settings.KeyUserName); err != nil {
		h.fail(w, r, err)
		return
	}
	if out.UserEmail, err = h.prefs.Get(ctx, settings.KeyUserEmail); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// updateSettingsRequest updates only the fields present in the body.
type updateSettingsRequest struct {
	Currency  *string `json:"currency,omitempty"`
	UserName  *string `json:"user_name,omitempty"`
	UserEmail *string `json:"user_email,omitempty"`
}

func (h *handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	updates := map[string]*string{
		settings.KeyCurrency:  req.Currency,
		settings.KeyUserName:  req.UserName,
		settings.KeyUserEmail: req.UserEmail,
	}
	for key, value := range updates {
		if value == nil {
			continue
		}
		if err := h.prefs.Set(ctx, key, *value); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	// Currency feeds every cached view's display strings, group details
	// included; the stored identity only feeds the users view.
	switch {
	case req.Currency != nil:
		h.views.InvalidateAll()
	case req.UserName != nil || req.UserEmail != nil:
		h.views.InvalidateUsers()
	}
	h.getSettings(w, r)
}

func (h *handlers) groupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_GROUP_ID", "group id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return false
	}
	return true
}

// fail maps a service error onto the response envelope. Validation failures
// are the caller's fault; backend failures surface as bad gateway so the
// client can distinguish them from local errors.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		writeError(w, http.StatusBadRequest, "EMPTY_DESCRIPTION", "description must not be empty")
	case errors.Is(err, core.ErrParseAmount):
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", "amount is not a valid decimal")
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be positive")
	case errors.Is(err, core.ErrNoParticipants):
		writeError(w, http.StatusBadRequest, "NO_PARTICIPANTS", "expense needs at least one participant")
	case errors.Is(err, core.ErrSplitMismatch):
		writeError(w, http.StatusBadRequest, "SPLIT_MISMATCH", "custom split amounts must sum to the expense amount")
	case errors.Is(err, core.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "EMPTY_NAME", "name must not be empty")
	case errors.Is(err, core.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "email address is not valid")
	case errors.Is(err, settings.ErrUnknownKey):
		writeError(w, http.StatusBadRequest, "UNKNOWN_KEY", "unknown settings key")
	case errors.Is(err, api.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "entity not found")
	case errors.Is(err, api.ErrLoad):
		writeError(w, http.StatusBadGateway, "LOAD_FAILED", "could not load data from the ledger backend")
	case errors.Is(err, api.ErrSubmit):
		writeError(w, http.StatusBadGateway, "SUBMIT_FAILED", "could not submit to the ledger backend")
	default:
		h.logger.ErrorContext(r.Context(), "unhandled error",
			log.FieldRequestID, RequestID(r.Context()), log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
