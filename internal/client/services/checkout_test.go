package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"github.com/dmitrijs2005/sitekeeper/internal/testutil/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckoutEnv(t *testing.T, v models.Variant) (*env, *Checkout) {
	t.Helper()
	e := newEnv(t, v)
	e.srv.SeedAsset(models.Asset{ID: 42, Name: "Laser Level", Location: "Warehouse", IsAvailable: true, Status: v.FreeStatus})
	e.srv.SeedAsset(models.Asset{ID: 43, Name: "Rotary Hammer", Location: "Warehouse", IsAvailable: true, Status: v.FreeStatus})
	e.login(t, "demo", "demo123")
	require.NoError(t, e.inv.Refresh(context.Background()))
	return e, NewCheckout(e.client, e.session, e.inv, "", logging.Discard())
}

func TestCheckout_ToggleRoundTrip(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	ctx := context.Background()

	require.NoError(t, co.Toggle(ctx, 42))

	cached, _ := e.inv.Asset(42)
	assert.False(t, cached.IsAvailable)
	assert.Equal(t, models.StatusNeedsMaintenance, cached.Status)

	stored, _ := e.srv.Asset(42)
	assert.False(t, stored.IsAvailable)
	assert.Equal(t, "Job Site", stored.Location)
	require.NotNil(t, stored.CheckedOutBy)
	assert.Equal(t, e.srv.UserID("demo"), *stored.CheckedOutBy)

	// the refetch brings server-derived fields into the cache
	require.NotNil(t, cached.CheckoutDate)
	assert.Equal(t, "Job Site", cached.Location)

	require.NoError(t, co.Toggle(ctx, 42))
	cached, _ = e.inv.Asset(42)
	assert.True(t, cached.IsAvailable)
	assert.Equal(t, models.StatusGood, cached.Status)
	assert.Equal(t, "Warehouse", cached.Location)
	assert.Nil(t, cached.CheckedOutBy)
}

func TestCheckout_ToolsVariant(t *testing.T) {
	e, co := newCheckoutEnv(t, models.ToolsVariant)

	require.NoError(t, co.CheckOut(context.Background(), 43, "Level 3"))
	cached, _ := e.inv.Asset(43)
	assert.False(t, cached.IsAvailable)
	assert.Equal(t, models.StatusMaintenance, cached.Status)
	assert.Equal(t, "Level 3", cached.Location)
}

func TestCheckout_NetworkFailureRollsBack(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	before, _ := e.inv.Asset(42)
	refreshes := e.srv.Calls(http.MethodGet, "/api/assets")
	e.srv.Fail(http.MethodPost, "/api/assets/42/checkout", fakeapi.Fault{Drop: true})

	err := co.Toggle(context.Background(), 42)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, "server unavailable", client.UserMessage(err, "checkout failed"))

	after, _ := e.inv.Asset(42)
	assert.Equal(t, before, after)
	assert.Equal(t, models.Availability{IsAvailable: true, Status: models.StatusGood}, after.Availability())
	assert.Equal(t, refreshes, e.srv.Calls(http.MethodGet, "/api/assets"))
	assert.False(t, co.Pending(42))
}

func TestCheckout_BackendErrorRollsBack(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	ctx := context.Background()
	require.NoError(t, co.Toggle(ctx, 42))
	before, _ := e.inv.Asset(42)

	e.srv.Fail(http.MethodPost, "/api/assets/42/checkin", fakeapi.Fault{Status: http.StatusBadRequest, Message: "Asset is locked"})
	err := co.Toggle(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, "Asset is locked", client.UserMessage(err, "check-in failed"))

	after, _ := e.inv.Asset(42)
	assert.Equal(t, before.Availability(), after.Availability())
	assert.False(t, after.IsAvailable)
}

func TestCheckout_RejectsSecondTransitionForSameItem(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	ctx := context.Background()
	release := e.srv.Hold(http.MethodPost, "/api/assets/42/checkout")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, co.Toggle(ctx, 42))
	}()
	require.Eventually(t, func() bool { return co.Pending(42) }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return e.srv.Calls(http.MethodPost, "/api/assets/42/checkout") == 1 }, 2*time.Second, 5*time.Millisecond)

	// optimistic state is visible while the request is outstanding
	cached, _ := e.inv.Asset(42)
	assert.False(t, cached.IsAvailable)

	require.ErrorIs(t, co.Toggle(ctx, 42), ErrTransitionInFlight)
	require.NoError(t, co.Toggle(ctx, 43))

	release()
	wg.Wait()

	assert.Equal(t, 1, e.srv.Calls(http.MethodPost, "/api/assets/42/checkout"))
	assert.Zero(t, e.srv.Calls(http.MethodPost, "/api/assets/42/checkin"))
	assert.False(t, co.Pending(42))
}

func TestCheckout_RequiresCredential(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	require.NoError(t, e.session.Logout(context.Background()))

	require.ErrorIs(t, co.CheckOut(context.Background(), 42, ""), common.ErrNoCredential)
	assert.Zero(t, e.srv.Calls(http.MethodPost, "/api/assets/42/checkout"))
}

func TestCheckout_UnknownItem(t *testing.T) {
	_, co := newCheckoutEnv(t, models.AssetsVariant)
	require.ErrorIs(t, co.Toggle(context.Background(), 999), common.ErrorNotFound)
}

func TestCheckout_UnauthorizedPurgesSession(t *testing.T) {
	e, co := newCheckoutEnv(t, models.AssetsVariant)
	e.srv.Fail(http.MethodPost, "/api/assets/42/checkout", fakeapi.Fault{Status: http.StatusUnauthorized, Message: "Token has expired"})

	err := co.Toggle(context.Background(), 42)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, e.session.Authenticated())

	cached, _ := e.inv.Asset(42)
	assert.True(t, cached.IsAvailable)
}

func TestOptimistic(t *testing.T) {
	state := 1
	apply := func() int { prev := state; state = 2; return prev }
	revert := func(prev int) { state = prev }

	err := Optimistic(context.Background(), apply, func(context.Context) error { return nil }, revert)
	require.NoError(t, err)
	assert.Equal(t, 2, state)

	state = 1
	err = Optimistic(context.Background(), apply, func(context.Context) error { return assert.AnError }, revert)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, state)
}

func TestKeyedGate(t *testing.T) {
	var g KeyedGate[int64]

	release, ok := g.TryAcquire(1)
	require.True(t, ok)
	assert.True(t, g.Busy(1))

	_, ok = g.TryAcquire(1)
	assert.False(t, ok)

	other, ok := g.TryAcquire(2)
	require.True(t, ok)
	other()

	release()
	release()
	assert.False(t, g.Busy(1))
	_, ok = g.TryAcquire(1)
	assert.True(t, ok)
}

func TestKeyedMutex(t *testing.T) {
	var m KeyedMutex[int64]
	ctx := context.Background()

	unlock, err := m.Lock(ctx, 1)
	require.NoError(t, err)

	// other keys are independent
	u2, err := m.Lock(ctx, 2)
	require.NoError(t, err)
	u2()

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(cctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan struct{})
	go func() {
		u, err := m.Lock(ctx, 1)
		if err == nil {
			u()
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-got

	m.mu.Lock()
	assert.Empty(t, m.locks)
	m.mu.Unlock()
}

func TestLifetime(t *testing.T) {
	var l Lifetime
	ran := 0
	assert.True(t, l.Deliver(func() { ran++ }))
	l.Close()
	assert.True(t, l.Closed())
	assert.False(t, l.Deliver(func() { ran++ }))
	assert.Equal(t, 1, ran)
}

// A page fetched before a flip must not undo it when it lands mid-request.
func TestCheckout_LateRefreshKeepsOptimisticFlip(t *testing.T) {
	var (
		mu        sync.Mutex
		available = true
		lists     int
		listing   = make(chan struct{})
		landList  = make(chan struct{})
		sending   = make(chan struct{})
		landPut   = make(chan struct{})
	)
	stub := &stubClient{
		listAssets: func(ctx context.Context, q client.ListQuery) (models.Page, error) {
			mu.Lock()
			lists++
			n, avail := lists, available
			mu.Unlock()
			if n == 2 {
				close(listing)
				<-landList
			}
			return models.Page{Page: 1, Items: []models.Asset{{ID: 42, Name: "Laser Level", IsAvailable: avail, Status: models.AssetsVariant.StatusFor(avail)}}}, nil
		},
		checkOut: func(context.Context, int64, client.CheckoutRequest) error {
			close(sending)
			<-landPut
			mu.Lock()
			available = false
			mu.Unlock()
			return nil
		},
	}
	inv := NewInventory(stub, signedIn(t), models.AssetsVariant, 10, logging.Discard())
	ctx := context.Background()
	require.NoError(t, inv.FetchAssets(ctx, ListOptions{}))
	co := NewCheckout(stub, inv.session, inv, "", logging.Discard())

	fetched := make(chan error, 1)
	go func() { fetched <- inv.FetchAssets(ctx, ListOptions{}) }()
	<-listing

	toggled := make(chan error, 1)
	go func() { toggled <- co.Toggle(ctx, 42) }()
	<-sending

	close(landList)
	require.NoError(t, <-fetched)
	a, _ := inv.Asset(42)
	assert.False(t, a.IsAvailable, "stale page overwrote the pending checkout")

	// a second toggle is still refused rather than read from a stale cache
	require.ErrorIs(t, co.Toggle(ctx, 42), ErrTransitionInFlight)

	close(landPut)
	require.NoError(t, <-toggled)
	a, _ = inv.Asset(42)
	assert.False(t, a.IsAvailable)
}
