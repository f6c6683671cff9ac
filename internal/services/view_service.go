// Package services orchestrates the core computations against the ledger
// backend: the view service assembles display-ready views from joined
// loads, the ledger service runs the submission path through the allocator.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"splitview/internal/api"
	"splitview/internal/cache"
	"splitview/internal/core"
	"splitview/internal/log"
	"splitview/internal/metrics"
)

// Loader is the read side of the backend client.
type Loader interface {
	LoadDashboard(ctx context.Context) (*api.Dashboard, error)
	LoadGroupDetail(ctx context.Context, groupID int64) (*api.GroupDetail, error)
	LoadActivityFeed(ctx context.Context) (*api.ActivityFeed, error)
	Users(ctx context.Context) ([]core.User, error)
}

// Preferences provides the stored display preferences.
type Preferences interface {
	Currency(ctx context.Context) string
	UserName(ctx context.Context) string
	UserEmail(ctx context.Context) string
}

// DashboardView backs the dashboard: group list, total spend, and the
// per-group breakdown.
type DashboardView struct {
	Currency          string            `json:"currency"`
	Groups            []core.Group      `json:"groups"`
	TotalSpend        int64             `json:"total_spend"`
	TotalSpendDisplay string            `json:"total_spend_display"`
	Breakdown         []core.GroupSlice `json:"breakdown"`
}

// FeedItem is one rendered activity feed entry.
type FeedItem struct {
	ID            int64     `json:"id"`
	GroupID       int64     `json:"group_id"`
	PayerID       int64     `json:"payer_id"`
	PayerName     string    `json:"payer_name"`
	GroupName     string    `json:"group_name"`
	Description   string    `json:"description"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	CreatedAt     time.Time `json:"created_at"`
}

// ActivityView backs the activity page: the recency-ordered feed plus the
// daily spend series.
type ActivityView struct {
	Currency string          `json:"currency"`
	Feed     []FeedItem      `json:"feed"`
	Daily    []core.DayTotal `json:"daily"`
}

// BalanceView is one labeled balance row.
type BalanceView struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Display  string `json:"display"`
}

// SettlementView is one rendered from→to settlement suggestion.
type SettlementView struct {
	FromUserID    int64  `json:"from_user_id"`
	FromName      string `json:"from_name"`
	ToUserID      int64  `json:"to_user_id"`
	ToName        string `json:"to_name"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// GroupDetailView backs the group page: header, balances, settlements.
type GroupDetailView struct {
	Group       core.Group       `json:"group"`
	Currency    string           `json:"currency"`
	Balances    []BalanceView    `json:"balances"`
	Settlements []SettlementView `json:"settlements"`
}

// UsersView backs the friends page: everyone the backend knows plus the
// stored identity of the local user.
type UsersView struct {
	Users            []core.User `json:"users"`
	CurrentUserName  string      `json:"current_user_name"`
	CurrentUserEmail string      `json:"current_user_email"`
}

// ViewService computes display-ready views. Each view is a pure function of
// one joined load plus the stored currency preference; results are cached
// briefly, and a failed load leaves the cache untouched so stale-but-valid
// data is never replaced by a partial result.
type ViewService struct {
	loader Loader
	prefs  Preferences
	logger *log.Logger

	dashboards *cache.LRU[DashboardView]
	activity   *cache.LRU[ActivityView]
	groups     *cache.LRU[GroupDetailView]
	users      *cache.LRU[UsersView]

	stopSweep chan struct{}
	closeOnce sync.Once
}

func NewViewService(loader Loader, prefs Preferences, logger *log.Logger, cacheSize int, ttl time.Duration) *ViewService {
	s := &ViewService{
		loader:     loader,
		prefs:      prefs,
		logger:     logger.WithComponent(log.ComponentViews),
		dashboards: cache.NewLRU[DashboardView](cacheSize, ttl),
		activity:   cache.NewLRU[ActivityView](cacheSize, ttl),
		groups:     cache.NewLRU[GroupDetailView](cacheSize, ttl),
		users:      cache.NewLRU[UsersView](cacheSize, ttl),
		stopSweep:  make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweepLoop(ttl)
	}
	return s
}

// sweepLoop periodically evicts expired entries so an idle cache does not
// hold stale views in memory for longer than one extra interval.
func (s *ViewService) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *ViewService) sweepExpired() {
	s.dashboards.CleanExpired()
	s.activity.CleanExpired()
	s.groups.CleanExpired()
	s.users.CleanExpired()
}

// Close stops the expiry sweeper. Safe to call more than once.
func (s *ViewService) Close() {
	s.closeOnce.Do(func() { close(s.stopSweep) })
}

const (
	dashboardKey = "dashboard"
	activityKey  = "activity"
	usersKey     = "users"
)

func groupKey(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

func (s *ViewService) Dashboard(ctx context.Context) (DashboardView, error) {
	if view, ok := s.dashboards.Get(dashboardKey); ok {
		metrics.ViewCacheHits.WithLabelValues("dashboard").Inc()
		return view, nil
	}
	metrics.ViewCacheMisses.WithLabelValues("dashboard").Inc()

	d, err := s.loader.LoadDashboard(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard load failed", log.FieldError, err)
		return DashboardView{}, err
	}

	currency := s.prefs.Currency(ctx)
	total := core.TotalSpend(d.Activities)
	view := DashboardView{
		Currency:          currency,
		Groups:            d.Groups,
		TotalSpend:        total,
		TotalSpendDisplay: core.FormatMinor(total, currency),
		Breakdown:         core.GroupBreakdown(d.Activities, d.Groups),
	}
	s.dashboards.Set(dashboardKey, view)
	return view, nil
}

func (s *ViewService) Activity(ctx context.Context) (ActivityView, error) {
	if view, ok := s.activity.Get(activityKey); ok {
		metrics.ViewCacheHits.WithLabelValues("activity").Inc()
		return view, nil
	}
	metrics.ViewCacheMisses.WithLabelValues("activity").Inc()

	f, err := s.loader.LoadActivityFeed(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity load failed", log.FieldError, err)
		return ActivityView{}, err
	}

	currency := s.prefs.Currency(ctx)
	userNames := userNameIndex(f.Users)
	groupNames := groupNameIndex(f.Groups)

	recent := core.SortRecent(f.Activities)
	feed := make([]FeedItem, 0, len(recent))
	for _, a := range recent {
		feed = append(feed, FeedItem{
			ID:            a.ID,
			GroupID:       a.GroupID,
			PayerID:       a.PayerID,
			PayerName:     lookupName(userNames, a.PayerID, "User"),
			GroupName:     lookupName(groupNames, a.GroupID, "Group"),
			Description:   a.Description,
			Amount:        a.Amount,
			AmountDisplay: core.FormatMinor(a.Amount, currency),
			CreatedAt:     a.CreatedAt,
		})
	}

	view := ActivityView{
		Currency: currency,
		Feed:     feed,
		Daily:    core.DailySeries(f.Activities),
	}
	s.activity.Set(activityKey, view)
	return view, nil
}

func (s *ViewService) GroupDetail(ctx context.Context, groupID int64) (GroupDetailView, error) {
	key := groupKey(groupID)
	if view, ok := s.groups.Get(key); ok {
		metrics.ViewCacheHits.WithLabelValues("group_detail").Inc()
		return view, nil
	}
	metrics.ViewCacheMisses.WithLabelValues("group_detail").Inc()

	d, err := s.loader.LoadGroupDetail(ctx, groupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "group detail load failed",
			log.FieldGroupID, groupID, log.FieldError, err)
		return GroupDetailView{}, err
	}

	currency := s.prefs.Currency(ctx)
	userNames := userNameIndex(d.Users)

	balances := make([]BalanceView, 0, len(d.Balances))
	for _, b := range d.Balances {
		balances = append(balances, BalanceView{
			UserID:   b.UserID,
			UserName: lookupName(userNames, b.UserID, "User"),
			Status:   string(b.Status()),
			Amount:   b.Magnitude(),
			Display:  core.FormatBalance(b, currency),
		})
	}

	settlements := make([]SettlementView, 0, len(d.Settlements))
	for _, st := range d.Settlements {
		settlements = append(settlements, SettlementView{
			FromUserID:    st.FromUserID,
			FromName:      lookupName(userNames, st.FromUserID, "User"),
			ToUserID:      st.ToUserID,
			ToName:        lookupName(userNames, st.ToUserID, "User"),
			Amount:        st.Amount,
			AmountDisplay: core.FormatMinor(st.Amount, currency),
		})
	}

	view := GroupDetailView{
		Group:       d.Group,
		Currency:    currency,
		Balances:    balances,
		Settlements: settlements,
	}
	s.groups.Set(key, view)
	return view, nil
}

func (s *ViewService) Users(ctx context.Context) (UsersView, error) {
	if view, ok := s.users.Get(usersKey); ok {
		metrics.ViewCacheHits.WithLabelValues("users").Inc()
		return view, nil
	}
	metrics.ViewCacheMisses.WithLabelValues("users").Inc()

	users, err := s.loader.Users(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "users load failed", log.FieldError, err)
		return UsersView{}, err
	}

	view := UsersView{
		Users:            users,
		CurrentUserName:  s.prefs.UserName(ctx),
		CurrentUserEmail: s.prefs.UserEmail(ctx),
	}
	s.users.Set(usersKey, view)
	return view, nil
}

// Invalidate drops the cached views a group-scoped submission affects.
func (s *ViewService) Invalidate(groupID int64) {
	s.dashboards.Delete(dashboardKey)
	s.activity.Delete(activityKey)
	s.groups.Delete(groupKey(groupID))
}

// InvalidateLists drops the list-level views after a group or user is
// created.
func (s *ViewService) InvalidateLists() {
	s.dashboards.Delete(dashboardKey)
	s.activity.Delete(activityKey)
	s.users.Delete(usersKey)
}

// InvalidateUsers drops the users view after the stored identity changes.
func (s *ViewService) InvalidateUsers() {
	s.users.Delete(usersKey)
}

// InvalidateAll drops every cached view, group details included. Display
// strings embed the currency, so a currency change stales all of them.
func (s *ViewService) InvalidateAll() {
	s.dashboards.Purge()
	s.activity.Purge()
	s.groups.Purge()
	s.users.Purge()
}

func userNameIndex(users []core.User) map[int64]string {
	idx := make(map[int64]string, len(users))
	for _, u := range users {
		idx[u.ID] = u.Name
	}
	return idx
}

func groupNameIndex(groups []core.Group) map[int64]string {
	idx := make(map[int64]string, len(groups))
	for _, g := range groups {
		idx[g.ID] = g.Name
	}
	return idx
}

func lookupName(idx map[int64]string, id int64, kind string) string {
	if name, ok := idx[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", kind, id)
}
