package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

// QuickSteps are the one-tap quantity adjustments.
var QuickSteps = []int{-1, 1, 5, 10, 25}

const (
	DefaultMaterialUnit     = "box"
	DefaultMaterialMinStock = 5
)

// Materials edits material quantities. Edits to the same material queue
// behind each other so each one starts from the previous result; quantities
// never go below zero.
type Materials struct {
	client  client.Client
	session *Session
	inv     *Inventory
	log     logging.Logger
	locks   KeyedMutex[int64]

	// While edits for a material are queued, each one builds on the last
	// quantity the backend accepted rather than on the cache, which a
	// refresh may have rewritten in between.
	mu        sync.Mutex
	queued    map[int64]int
	confirmed map[int64]int
}

func NewMaterials(c client.Client, s *Session, inv *Inventory, log logging.Logger) *Materials {
	return &Materials{
		client:    c,
		session:   s,
		inv:       inv,
		log:       log.With("module", "materials"),
		queued:    make(map[int64]int),
		confirmed: make(map[int64]int),
	}
}

// Adjust changes the quantity by delta and returns the new quantity.
func (m *Materials) Adjust(ctx context.Context, id int64, delta int) (int, error) {
	return m.edit(ctx, id, func(cur int) int { return cur + delta })
}

// SetQuantity sets an absolute quantity, clamped at zero.
func (m *Materials) SetQuantity(ctx context.Context, id int64, qty int) (int, error) {
	return m.edit(ctx, id, func(int) int { return qty })
}

func (m *Materials) edit(ctx context.Context, id int64, next func(cur int) int) (int, error) {
	tok, err := m.session.RequireToken()
	if err != nil {
		return 0, err
	}

	m.enqueue(id)
	defer m.dequeue(id)

	unlock, err := m.locks.Lock(ctx, id)
	if err != nil {
		return 0, err
	}

	cur, ok := m.inv.Material(id)
	if !ok {
		unlock()
		return 0, fmt.Errorf("material %d: %w", id, common.ErrorNotFound)
	}
	base := cur.Quantity
	if q, ok := m.lastConfirmed(id); ok {
		base = q
	}
	target := max(next(base), 0)
	if target == base && base == cur.Quantity {
		unlock()
		return target, nil
	}

	err = Optimistic(ctx,
		func() int {
			m.inv.updateMaterial(id, func(mat *models.Material) { mat.Quantity = target })
			return base
		},
		func(ctx context.Context) error {
			return m.client.SetMaterialQuantity(ctx, tok, id, target)
		},
		func(prev int) {
			m.inv.updateMaterial(id, func(mat *models.Material) { mat.Quantity = prev })
		},
	)
	if err == nil {
		m.confirm(id, target)
	}
	unlock()

	if err != nil {
		m.session.Observe(ctx, err)
		m.log.Warn(ctx, "quantity update failed, rolled back", "id", id, "quantity", target, "error", err)
		return base, fmt.Errorf("update material %d: %w", id, err)
	}

	m.inv.reconcile(ctx)
	return target, nil
}

func (m *Materials) enqueue(id int64) {
	m.mu.Lock()
	m.queued[id]++
	m.mu.Unlock()
}

// dequeue forgets the confirmed quantity once the last queued edit is done,
// so the next burst starts from fresh server state.
func (m *Materials) dequeue(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued[id]--; m.queued[id] <= 0 {
		delete(m.queued, id)
		delete(m.confirmed, id)
	}
}

func (m *Materials) confirm(id int64, qty int) {
	m.mu.Lock()
	m.confirmed[id] = qty
	m.mu.Unlock()
}

func (m *Materials) lastConfirmed(id int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.confirmed[id]
	return q, ok
}

// Create adds a material. A blank unit becomes "box".
func (m *Materials) Create(ctx context.Context, nm models.NewMaterial) (models.Material, error) {
	tok, err := m.session.RequireToken()
	if err != nil {
		return models.Material{}, err
	}
	nm.Name = strings.TrimSpace(nm.Name)
	if nm.Name == "" {
		return models.Material{}, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if nm.Quantity < 0 || nm.MinStock < 0 {
		return models.Material{}, fmt.Errorf("%w: quantities must not be negative", common.ErrValidation)
	}
	if strings.TrimSpace(nm.Unit) == "" {
		nm.Unit = DefaultMaterialUnit
	}

	mat, err := m.client.CreateMaterial(ctx, tok, nm)
	if err != nil {
		m.session.Observe(ctx, err)
		return models.Material{}, fmt.Errorf("create material: %w", err)
	}
	m.inv.reconcile(ctx)
	return mat, nil
}

func (m *Materials) Delete(ctx context.Context, id int64) error {
	tok, err := m.session.RequireToken()
	if err != nil {
		return err
	}
	if err := m.client.DeleteMaterial(ctx, tok, id); err != nil {
		m.session.Observe(ctx, err)
		return fmt.Errorf("delete material %d: %w", id, err)
	}
	m.inv.reconcile(ctx)
	return nil
}
