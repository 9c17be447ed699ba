package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/capture"
	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"github.com/dmitrijs2005/sitekeeper/internal/testutil/fakeapi"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory CredentialStore.
type memStore struct {
	mu      sync.Mutex
	token   string
	saves   int
	clears  int
	loadErr error
}

func (m *memStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.loadErr
}

func (m *memStore) Save(_ context.Context, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
	m.saves++
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.clears++
	return nil
}

func (m *memStore) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type env struct {
	srv     *fakeapi.Server
	client  *client.HTTPClient
	store   *memStore
	session *Session
	inv     *Inventory
}

func newEnv(t *testing.T, v models.Variant) *env {
	t.Helper()
	srv := fakeapi.New(t)
	c := client.NewHTTPClient(srv.BaseURL(), v.Collection, 5*time.Second, logging.Discard())
	store := &memStore{}
	sess := NewSession(c, store, logging.Discard())
	inv := NewInventory(c, sess, v, 10, logging.Discard())
	return &env{srv: srv, client: c, store: store, session: sess, inv: inv}
}

func (e *env) login(t *testing.T, username, password string) models.User {
	t.Helper()
	u, err := e.session.Login(context.Background(), username, password)
	require.NoError(t, err)
	return u
}

// stubClient overrides single Client methods; calling anything else panics.
type stubClient struct {
	client.Client
	listAssets    func(ctx context.Context, q client.ListQuery) (models.Page, error)
	listMaterials func(ctx context.Context) ([]models.Material, error)
	setQuantity   func(ctx context.Context, id int64, qty int) error
	checkOut      func(ctx context.Context, id int64, req client.CheckoutRequest) error
}

func (s *stubClient) SetMaterialQuantity(ctx context.Context, _ string, id int64, qty int) error {
	return s.setQuantity(ctx, id, qty)
}

func (s *stubClient) CheckOut(ctx context.Context, _ string, id int64, req client.CheckoutRequest) error {
	return s.checkOut(ctx, id, req)
}

func (s *stubClient) ListAssets(ctx context.Context, _ string, q client.ListQuery) (models.Page, error) {
	return s.listAssets(ctx, q)
}

func (s *stubClient) ListMaterials(ctx context.Context, _ string) ([]models.Material, error) {
	if s.listMaterials == nil {
		return []models.Material{}, nil
	}
	return s.listMaterials(ctx)
}

// signedIn returns a session that already holds a credential without
// talking to a backend.
func signedIn(t *testing.T) *Session {
	t.Helper()
	store := &memStore{}
	s := NewSession(nil, store, logging.Discard())
	s.set("opaque-token", models.User{ID: 1, Username: "demo", Role: models.RoleTechnician})
	return s
}

// bufferedStream hands out a fixed set of chunks.
type bufferedStream struct {
	ch     chan []byte
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (b *bufferedStream) Chunks() <-chan []byte { return b.ch }
func (b *bufferedStream) Err() error            { return nil }
func (b *bufferedStream) Close() error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.ch)
	})
	return nil
}

func (b *bufferedStream) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// fakeDevice records every stream it opens.
type fakeDevice struct {
	mu      sync.Mutex
	chunks  [][]byte
	err     error
	streams []*bufferedStream
}

func (d *fakeDevice) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &bufferedStream{ch: make(chan []byte, len(d.chunks))}
	for _, c := range d.chunks {
		s.ch <- c
	}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) opened() []*bufferedStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*bufferedStream(nil), d.streams...)
}

// memSink keeps labels in memory.
type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memSink) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}
