package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

var ErrInvalidPage = errors.New("page must be 1 or greater")

// ListOptions selects the page FetchAssets loads. Zero fields fall back to
// the store's current page and page size.
type ListOptions struct {
	Page    int
	PerPage int
	UserID  int64
}

// Inventory caches the current page of items and the material list.
// Read failures leave the cache as it was; the last issued fetch wins.
type Inventory struct {
	client  client.Client
	session *Session
	variant models.Variant
	log     logging.Logger
	life    Lifetime
	refresh singleflight.Group

	mu              sync.RWMutex
	page            int
	perPage         int
	assets          models.Page
	materials       []models.Material
	assetsIssued    uint64
	materialsIssued uint64
}

func NewInventory(c client.Client, s *Session, v models.Variant, perPage int, log logging.Logger) *Inventory {
	if perPage <= 0 {
		perPage = 10
	}
	return &Inventory{
		client:  c,
		session: s,
		variant: v,
		log:     log.With("module", "inventory", "collection", v.Collection),
		page:    1,
		perPage: perPage,
	}
}

func (inv *Inventory) Variant() models.Variant { return inv.variant }

// FetchAssets loads one page into the cache.
func (inv *Inventory) FetchAssets(ctx context.Context, opts ListOptions) error {
	tok, err := inv.session.RequireToken()
	if err != nil {
		return err
	}

	inv.mu.Lock()
	if opts.Page <= 0 {
		opts.Page = inv.page
	}
	if opts.PerPage <= 0 {
		opts.PerPage = inv.perPage
	}
	inv.assetsIssued++
	seq := inv.assetsIssued
	inv.mu.Unlock()

	page, err := inv.client.ListAssets(ctx, tok, client.ListQuery{Page: opts.Page, PerPage: opts.PerPage, UserID: opts.UserID})
	if err != nil {
		inv.session.Observe(ctx, err)
		inv.log.Warn(ctx, "fetch assets failed", "page", opts.Page, "error", err)
		return fmt.Errorf("fetch assets: %w", err)
	}

	applied := inv.life.Deliver(func() {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		if seq != inv.assetsIssued {
			return
		}
		if page.Page == 0 {
			page.Page = opts.Page
		}
		if page.PerPage == 0 {
			page.PerPage = opts.PerPage
		}
		inv.assets = page
	})
	if !applied {
		inv.log.Debug(ctx, "discarding assets after close")
	}
	return nil
}

func (inv *Inventory) FetchMaterials(ctx context.Context) error {
	tok, err := inv.session.RequireToken()
	if err != nil {
		return err
	}

	inv.mu.Lock()
	inv.materialsIssued++
	seq := inv.materialsIssued
	inv.mu.Unlock()

	ms, err := inv.client.ListMaterials(ctx, tok)
	if err != nil {
		inv.session.Observe(ctx, err)
		inv.log.Warn(ctx, "fetch materials failed", "error", err)
		return fmt.Errorf("fetch materials: %w", err)
	}

	inv.life.Deliver(func() {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		if seq == inv.materialsIssued {
			inv.materials = ms
		}
	})
	return nil
}

// Refresh refetches the current page and the materials in parallel.
// Concurrent calls share one round of requests.
func (inv *Inventory) Refresh(ctx context.Context) error {
	_, err, _ := inv.refresh.Do("refresh", func() (any, error) {
		var g errgroup.Group
		g.Go(func() error { return inv.FetchAssets(ctx, ListOptions{}) })
		g.Go(func() error { return inv.FetchMaterials(ctx) })
		return nil, g.Wait()
	})
	return err
}

// reconcile refetches after a mutation. It never joins a refresh that was
// started before the mutation settled.
func (inv *Inventory) reconcile(ctx context.Context) {
	inv.refresh.Forget("refresh")
	if err := inv.Refresh(ctx); err != nil {
		inv.log.Warn(ctx, "reconcile failed", "error", err)
	}
}

// Close discards the results of every fetch still in flight.
func (inv *Inventory) Close() {
	inv.life.Close()
}

func (inv *Inventory) Page() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.page
}

// SetPage moves to page n and fetches it. There is no upper bound check;
// a page past the end simply comes back empty.
func (inv *Inventory) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return ErrInvalidPage
	}
	inv.mu.Lock()
	inv.page = n
	inv.mu.Unlock()
	return inv.FetchAssets(ctx, ListOptions{Page: n})
}

func (inv *Inventory) NextPage(ctx context.Context) error {
	return inv.SetPage(ctx, inv.Page()+1)
}

// PrevPage never goes below the first page.
func (inv *Inventory) PrevPage(ctx context.Context) error {
	p := inv.Page()
	if p <= 1 {
		return nil
	}
	return inv.SetPage(ctx, p-1)
}

// Assets returns a copy of the cached page.
func (inv *Inventory) Assets() models.Page {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	p := inv.assets
	p.Items = append([]models.Asset(nil), inv.assets.Items...)
	return p
}

func (inv *Inventory) Asset(id int64) (models.Asset, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	for _, a := range inv.assets.Items {
		if a.ID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}

func (inv *Inventory) Materials() []models.Material {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]models.Material(nil), inv.materials...)
}

func (inv *Inventory) Material(id int64) (models.Material, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	for _, m := range inv.materials {
		if m.ID == id {
			return m, true
		}
	}
	return models.Material{}, false
}

// updateAsset edits the cached item in place and reports whether the item
// was cached. Fetches already in flight are discarded when they land.
func (inv *Inventory) updateAsset(id int64, edit func(a *models.Asset)) bool {
	found := false
	inv.life.Deliver(func() {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		for i := range inv.assets.Items {
			if inv.assets.Items[i].ID == id {
				edit(&inv.assets.Items[i])
				found = true
				// a page requested before this edit no longer reflects it
				inv.assetsIssued++
				return
			}
		}
	})
	return found
}

func (inv *Inventory) updateMaterial(id int64, edit func(m *models.Material)) bool {
	found := false
	inv.life.Deliver(func() {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		for i := range inv.materials {
			if inv.materials[i].ID == id {
				edit(&inv.materials[i])
				found = true
				inv.materialsIssued++
				return
			}
		}
	})
	return found
}

// Counts tallies the cached page by status. Every tier of the variant is
// present, zero or not.
func (inv *Inventory) Counts() map[models.Status]int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make(map[models.Status]int, len(inv.variant.Tiers))
	for _, t := range inv.variant.Tiers {
		out[t] = 0
	}
	for _, a := range inv.assets.Items {
		out[a.Status]++
	}
	return out
}

// Search filters the cached page by a case-insensitive substring of the
// name or serial number. The query is matched as typed, surrounding spaces
// included; a blank query returns the whole page.
func (inv *Inventory) Search(query string) []models.Asset {
	items := inv.Assets().Items
	if strings.TrimSpace(query) == "" {
		return items
	}

	fold := cases.Fold()
	q := fold.String(query)
	out := make([]models.Asset, 0, len(items))
	for _, a := range items {
		if strings.Contains(fold.String(a.Name), q) || strings.Contains(fold.String(a.SerialNumber), q) {
			out = append(out, a)
		}
	}
	return out
}
