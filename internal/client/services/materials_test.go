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

func newMaterialsEnv(t *testing.T, qty int) (*env, *Materials) {
	t.Helper()
	e := newEnv(t, models.AssetsVariant)
	e.srv.SeedMaterial(models.Material{ID: 7, Name: "Drywall Screws", Unit: "box", Quantity: qty, MinStock: 5})
	e.login(t, "demo", "demo123")
	require.NoError(t, e.inv.Refresh(context.Background()))
	return e, NewMaterials(e.client, e.session, e.inv, logging.Discard())
}

const materialPath = "/api/assets/materials/7"

func TestMaterials_Adjust(t *testing.T) {
	e, m := newMaterialsEnv(t, 4)

	q, err := m.Adjust(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, 9, q)

	cached, _ := e.inv.Material(7)
	assert.Equal(t, 9, cached.Quantity)
	assert.False(t, cached.NeedsReorder())

	stored, _ := e.srv.Material(7)
	assert.Equal(t, 9, stored.Quantity)
}

func TestMaterials_FloorAtZero(t *testing.T) {
	e, m := newMaterialsEnv(t, 3)
	ctx := context.Background()

	q, err := m.Adjust(ctx, 7, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, q)
	stored, _ := e.srv.Material(7)
	assert.Equal(t, 0, stored.Quantity)

	// already at zero: nothing to send
	q, err = m.Adjust(ctx, 7, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, q)
	assert.Equal(t, 1, e.srv.Calls(http.MethodPut, materialPath))

	_, err = m.SetQuantity(ctx, 7, 12)
	require.NoError(t, err)
	q, err = m.SetQuantity(ctx, 7, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, q)
	cached, _ := e.inv.Material(7)
	assert.Equal(t, 0, cached.Quantity)
}

func TestMaterials_FailureRollsBack(t *testing.T) {
	e, m := newMaterialsEnv(t, 4)
	e.srv.Fail(http.MethodPut, materialPath, fakeapi.Fault{Status: http.StatusInternalServerError, Message: "write failed"})

	q, err := m.Adjust(context.Background(), 7, 1)
	require.Error(t, err)
	assert.Equal(t, 4, q)

	cached, _ := e.inv.Material(7)
	assert.Equal(t, 4, cached.Quantity)
	assert.True(t, cached.NeedsReorder())
}

func TestMaterials_EditsForSameMaterialQueue(t *testing.T) {
	e, m := newMaterialsEnv(t, 4)
	ctx := context.Background()
	release := e.srv.Hold(http.MethodPut, materialPath)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Adjust(ctx, 7, 1)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return e.srv.Calls(http.MethodPut, materialPath) == 1 }, 2*time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Adjust(ctx, 7, 1)
		assert.NoError(t, err)
	}()

	// the second edit waits for the first instead of racing it
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, e.srv.Calls(http.MethodPut, materialPath))

	release()
	wg.Wait()

	assert.Equal(t, 2, e.srv.Calls(http.MethodPut, materialPath))
	stored, _ := e.srv.Material(7)
	assert.Equal(t, 6, stored.Quantity)
	cached, _ := e.inv.Material(7)
	assert.Equal(t, 6, cached.Quantity)
}

func TestMaterials_UnknownMaterial(t *testing.T) {
	_, m := newMaterialsEnv(t, 4)
	_, err := m.Adjust(context.Background(), 99, 1)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMaterials_CreateAndDelete(t *testing.T) {
	e, m := newMaterialsEnv(t, 4)
	ctx := context.Background()

	_, err := m.Create(ctx, models.NewMaterial{Name: "  "})
	require.ErrorIs(t, err, common.ErrValidation)

	created, err := m.Create(ctx, models.NewMaterial{Name: "Wire Nuts", Quantity: 2, MinStock: DefaultMaterialMinStock})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaterialUnit, created.Unit)

	cached, ok := e.inv.Material(created.ID)
	require.True(t, ok)
	assert.True(t, cached.NeedsReorder())

	require.NoError(t, m.Delete(ctx, created.ID))
	_, ok = e.inv.Material(created.ID)
	assert.False(t, ok)
}

func TestQuickSteps(t *testing.T) {
	assert.Equal(t, []int{-1, 1, 5, 10, 25}, QuickSteps)
}

// A reconcile fetch issued after the first tap must not roll the cache back
// while later taps for the same material are still queued.
func TestMaterials_QueuedTapsSurviveLateRefresh(t *testing.T) {
	var (
		mu      sync.Mutex
		qty     = 5
		puts    []int
		lists   int
		secondP = make(chan struct{})
		holdPut = make(chan struct{})
		stale   = make(chan struct{})
		resume  = make(chan struct{})
	)
	stub := &stubClient{
		listAssets: func(context.Context, client.ListQuery) (models.Page, error) {
			return models.Page{Page: 1}, nil
		},
		listMaterials: func(context.Context) ([]models.Material, error) {
			mu.Lock()
			lists++
			n, snapshot := lists, qty
			mu.Unlock()
			if n == 2 {
				// first tap's reconcile: answer with what the server had
				// when it was asked, but only after the second PUT left
				close(stale)
				<-resume
			}
			return []models.Material{{ID: 7, Name: "Drywall Screws", Unit: "box", Quantity: snapshot, MinStock: 5}}, nil
		},
		setQuantity: func(_ context.Context, _ int64, q int) error {
			mu.Lock()
			puts = append(puts, q)
			n := len(puts)
			mu.Unlock()
			if n == 2 {
				close(secondP)
				<-holdPut
			}
			mu.Lock()
			qty = q
			mu.Unlock()
			return nil
		},
	}
	inv := NewInventory(stub, signedIn(t), models.AssetsVariant, 10, logging.Discard())
	require.NoError(t, inv.FetchMaterials(context.Background()))
	m := NewMaterials(stub, inv.session, inv, logging.Discard())
	ctx := context.Background()

	tap := func(wg *sync.WaitGroup) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Adjust(ctx, 7, 1)
			assert.NoError(t, err)
		}()
	}

	var first, rest sync.WaitGroup
	tap(&first)
	<-stale

	tap(&rest)
	<-secondP
	close(resume)
	first.Wait()

	tap(&rest)
	time.Sleep(20 * time.Millisecond)
	close(holdPut)
	rest.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{6, 7, 8}, puts)
	assert.Equal(t, 8, qty)
	cached, _ := inv.Material(7)
	assert.Equal(t, 8, cached.Quantity)
}
