package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

const (
	DefaultCheckoutLocation = "Job Site"
	CheckinLocation         = "Warehouse"
)

// Checkout toggles items between available and checked out. The cache is
// flipped before the request and restored exactly if it fails. One
// transition per item may be in flight; others are rejected.
type Checkout struct {
	client          client.Client
	session         *Session
	inv             *Inventory
	log             logging.Logger
	defaultLocation string
	gate            KeyedGate[int64]
}

func NewCheckout(c client.Client, s *Session, inv *Inventory, defaultLocation string, log logging.Logger) *Checkout {
	if defaultLocation == "" {
		defaultLocation = DefaultCheckoutLocation
	}
	return &Checkout{
		client:          c,
		session:         s,
		inv:             inv,
		log:             log.With("module", "checkout"),
		defaultLocation: defaultLocation,
	}
}

// Pending reports whether a transition for id is in flight.
func (c *Checkout) Pending(id int64) bool {
	return c.gate.Busy(id)
}

// Toggle checks a cached item out if it is available and in otherwise.
func (c *Checkout) Toggle(ctx context.Context, id int64) error {
	a, ok := c.inv.Asset(id)
	if !ok {
		return fmt.Errorf("item %d: %w", id, common.ErrorNotFound)
	}
	if a.IsAvailable {
		return c.CheckOut(ctx, id, "")
	}
	return c.CheckIn(ctx, id)
}

// CheckOut assigns the item to the current user at location.
func (c *Checkout) CheckOut(ctx context.Context, id int64, location string) error {
	if location == "" {
		location = c.defaultLocation
	}
	req := client.CheckoutRequest{Location: location}
	if u, ok := c.session.User(); ok {
		req.CheckedOutBy = &u.ID
	}
	return c.transition(ctx, id, false, func(ctx context.Context, tok string) error {
		return c.client.CheckOut(ctx, tok, id, req)
	})
}

func (c *Checkout) CheckIn(ctx context.Context, id int64) error {
	return c.transition(ctx, id, true, func(ctx context.Context, tok string) error {
		return c.client.CheckIn(ctx, tok, id, CheckinLocation)
	})
}

func (c *Checkout) transition(ctx context.Context, id int64, available bool, call func(ctx context.Context, tok string) error) error {
	tok, err := c.session.RequireToken()
	if err != nil {
		return err
	}

	release, ok := c.gate.TryAcquire(id)
	if !ok {
		return ErrTransitionInFlight
	}
	defer release()

	target := models.Availability{IsAvailable: available, Status: c.inv.Variant().StatusFor(available)}

	err = Optimistic(ctx,
		func() *models.Availability {
			var prev *models.Availability
			c.inv.updateAsset(id, func(a *models.Asset) {
				p := a.Availability()
				prev = &p
				a.SetAvailability(target)
			})
			return prev
		},
		func(ctx context.Context) error {
			return call(ctx, tok)
		},
		func(prev *models.Availability) {
			if prev == nil {
				return
			}
			c.inv.updateAsset(id, func(a *models.Asset) { a.SetAvailability(*prev) })
		},
	)
	if err != nil {
		c.session.Observe(ctx, err)
		c.log.Warn(ctx, "transition failed, rolled back", "id", id, "available", available, "error", err)
		if available {
			return fmt.Errorf("check in item %d: %w", id, err)
		}
		return fmt.Errorf("check out item %d: %w", id, err)
	}

	c.log.Info(ctx, "transition confirmed", "id", id, "available", available)
	c.inv.reconcile(ctx)
	return nil
}
