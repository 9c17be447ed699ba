// Package fakeapi is an in-memory stand-in for the SiteKeeper REST backend,
// served over httptest. It issues real HS256 tokens, stores bcrypt password
// hashes and can inject faults or hold requests in flight.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"golang.org/x/crypto/bcrypt"
)

// Fault describes how a matching request should fail.
type Fault struct {
	// Status and Message produce {success:false, error:Message}.
	Status  int
	Message string
	// Drop hijacks and closes the connection so the client sees a
	// transport error.
	Drop bool
	// Malformed answers 200 with a body that is not JSON.
	Malformed bool
	// Times limits how many requests fail; 0 means every request.
	Times int
}

type user struct {
	models.User
	hash []byte
}

// Server is the fake backend. All exported methods are safe for concurrent
// use with in-flight requests.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tokens    signer
	tokenTTL  time.Duration
	users     map[int64]*user
	assets    map[int64]*models.Asset
	materials map[int64]*models.Material
	nextID    int64
	calls     map[string]int
	faults    map[string]*Fault
	holds     map[string]chan struct{}
	voice     models.VoiceResult
	lastAudio []byte
}

// New starts a server seeded with the demo accounts and closes it when the
// test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tokens:    newSigner(),
		tokenTTL:  time.Hour,
		users:     make(map[int64]*user),
		assets:    make(map[int64]*models.Asset),
		materials: make(map[int64]*models.Material),
		calls:     make(map[string]int),
		faults:    make(map[string]*Fault),
		holds:     make(map[string]chan struct{}),
	}
	s.seedUser("demo", "demo@example.com", "demo123", models.RoleTechnician)
	s.seedUser("foreman", "foreman@example.com", "foreman123", models.RoleForeman)
	s.seedUser("super", "super@example.com", "super123", models.RoleSuperintendent)

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	t.Cleanup(s.releaseAll)
	return s
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ch := range s.holds {
		close(ch)
		delete(s.holds, k)
	}
}

// BaseURL is the API root the client should be pointed at.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) seedUser(username, email, password string, role models.Role) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &user{User: models.User{ID: s.id(), Username: username, Email: email, Role: role}, hash: hash}
	s.users[u.ID] = u
}

// UserID returns the id of a seeded or registered user.
func (s *Server) UserID(username string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u.ID
		}
	}
	return 0
}

// Token mints a valid token for username, bypassing login.
func (s *Server) Token(username string) string {
	return s.TokenTTL(username, s.tokenTTL)
}

// TokenTTL mints a token with a custom validity; negative means expired.
func (s *Server) TokenTTL(username string, ttl time.Duration) string {
	var id int64
	var role models.Role
	s.mu.Lock()
	for _, u := range s.users {
		if u.Username == username {
			id, role = u.ID, u.Role
		}
	}
	s.mu.Unlock()

	tok, err := s.tokens.mint(id, string(role), ttl)
	if err != nil {
		panic(err)
	}
	return tok
}

// SeedAsset stores a copy of a, assigning an id when a.ID is zero.
func (s *Server) SeedAsset(a models.Asset) models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	cp := a
	s.assets[a.ID] = &cp
	return a
}

func (s *Server) SeedMaterial(m models.Material) models.Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.id()
	} else if m.ID > s.nextID {
		s.nextID = m.ID
	}
	cp := m
	s.materials[m.ID] = &cp
	return m
}

func (s *Server) Asset(id int64) (models.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return models.Asset{}, false
	}
	return *a, true
}

func (s *Server) Material(id int64) (models.Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return models.Material{}, false
	}
	return *m, true
}

// SetVoiceResult fixes what the next voice uploads are "transcribed" to.
func (s *Server) SetVoiceResult(r models.VoiceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = r
}

// LastAudio is the body of the most recent voice upload.
func (s *Server) LastAudio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastAudio...)
}

func key(method, path string) string {
	return method + " " + path
}

// Calls counts requests to method and exact path (e.g. "/api/assets").
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key(method, path)]
}

// Fail makes requests to method and path fail as f describes.
func (s *Server) Fail(method, path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := f
	s.faults[key(method, path)] = &cp
}

// Heal removes every configured fault.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*Fault)
}

// Hold blocks requests to method and path until release is called.
// Blocked requests are counted on arrival.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[key(method, path)] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.holds[key(method, path)] == ch {
			delete(s.holds, key(method, path))
			close(ch)
		}
	}
}

// intercept records the call and applies holds and faults. It reports
// whether the handler should continue.
func (s *Server) intercept(w http.ResponseWriter, r *http.Request) bool {
	k := key(r.Method, r.URL.Path)

	s.mu.Lock()
	s.calls[k]++
	hold := s.holds[k]
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return false
		}
	}

	s.mu.Lock()
	f := s.faults[k]
	var fault Fault
	if f != nil {
		fault = *f
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				delete(s.faults, k)
			}
		}
	}
	s.mu.Unlock()

	switch {
	case f == nil:
		return true
	case fault.Drop:
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return false
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return false
	case fault.Malformed:
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>upstream error</html>"))
		return false
	default:
		status := fault.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		writeError(w, status, fault.Message)
		return false
	}
}

func (s *Server) sortedAssets() []models.Asset {
	out := make([]models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) sortedMaterials() []models.Material {
	out := make([]models.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) materialByName(name string) *models.Material {
	for _, m := range s.materials {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}
