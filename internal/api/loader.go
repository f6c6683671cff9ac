package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"splitview/internal/core"
)

// The loaders issue the independent fetches a view needs concurrently and
// return only once all of them have completed (join semantics). A single
// failure cancels the siblings and fails the whole load; no partially-merged
// result is ever returned.

// Dashboard is the joined result set behind the dashboard view.
type Dashboard struct {
	Groups     []core.Group
	Activities []core.Activity
}

func (c *Client) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := c.Groups(ctx)
		if err != nil {
			return err
		}
		d.Groups = groups
		return nil
	})
	g.Go(func() error {
		acts, err := c.Activities(ctx)
		if err != nil {
			return err
		}
		d.Activities = acts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// GroupDetail is the joined result set behind the group detail view.
type GroupDetail struct {
	Group       core.Group
	Balances    []core.Balance
	Settlements []core.Settlement
	Users       []core.User
}

func (c *Client) LoadGroupDetail(ctx context.Context, groupID int64) (*GroupDetail, error) {
	var (
		d      GroupDetail
		groups []core.Group
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = c.Groups(ctx)
		return err
	})
	g.Go(func() error {
		balances, err := c.Balances(ctx, groupID)
		if err != nil {
			return err
		}
		d.Balances = balances
		return nil
	})
	g.Go(func() error {
		settlements, err := c.Settlements(ctx, groupID)
		if err != nil {
			return err
		}
		d.Settlements = settlements
		return nil
	})
	g.Go(func() error {
		users, err := c.Users(ctx)
		if err != nil {
			return err
		}
		d.Users = users
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, grp := range groups {
		if grp.ID == groupID {
			d.Group = grp
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
}

// ActivityFeed is the joined result set behind the activity view.
type ActivityFeed struct {
	Activities []core.Activity
	Users      []core.User
	Groups     []core.Group
}

func (c *Client) LoadActivityFeed(ctx context.Context) (*ActivityFeed, error) {
	var f ActivityFeed
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acts, err := c.Activities(ctx)
		if err != nil {
			return err
		}
		f.Activities = acts
		return nil
	})
	g.Go(func() error {
		users, err := c.Users(ctx)
		if err != nil {
			return err
		}
		f.Users = users
		return nil
	})
	g.Go(func() error {
		groups, err := c.Groups(ctx)
		if err != nil {
			return err
		}
		f.Groups = groups
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &f, nil
}
