package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
)

const onsitePageSize = 100

// OnsiteEntry is a user together with the items they have checked out.
type OnsiteEntry struct {
	User  models.User
	Items []models.Asset
}

// Onsite splits users into those holding items and those who are not.
type Onsite struct {
	Active []OnsiteEntry
	Idle   []models.User
}

// Onsite walks every page of the collection, independently of the cached
// page, and groups checked-out items by holder.
func (inv *Inventory) Onsite(ctx context.Context) (Onsite, error) {
	tok, err := inv.session.RequireToken()
	if err != nil {
		return Onsite{}, err
	}

	users, err := inv.client.Users(ctx, tok)
	if err != nil {
		inv.session.Observe(ctx, err)
		return Onsite{}, fmt.Errorf("list users: %w", err)
	}

	held := make(map[int64][]models.Asset)
	for page := 1; ; page++ {
		p, err := inv.client.ListAssets(ctx, tok, client.ListQuery{Page: page, PerPage: onsitePageSize})
		if err != nil {
			inv.session.Observe(ctx, err)
			return Onsite{}, fmt.Errorf("list items page %d: %w", page, err)
		}
		for _, a := range p.Items {
			if !a.IsAvailable && a.CheckedOutBy != nil {
				held[*a.CheckedOutBy] = append(held[*a.CheckedOutBy], a)
			}
		}
		if !morePages(p, page) {
			break
		}
	}

	var out Onsite
	for _, u := range users {
		if items := held[u.ID]; len(items) > 0 {
			out.Active = append(out.Active, OnsiteEntry{User: u, Items: items})
		} else {
			out.Idle = append(out.Idle, u)
		}
	}
	sort.Slice(out.Active, func(i, j int) bool { return out.Active[i].User.Username < out.Active[j].User.Username })
	sort.Slice(out.Idle, func(i, j int) bool { return out.Idle[i].Username < out.Idle[j].Username })
	return out, nil
}

// morePages decides whether to ask for the page after page. Without a page
// count from the backend a full page means there may be another.
func morePages(p models.Page, page int) bool {
	if len(p.Items) == 0 {
		return false
	}
	if p.Pages > 0 {
		return page < p.Pages
	}
	return len(p.Items) >= onsitePageSize
}
