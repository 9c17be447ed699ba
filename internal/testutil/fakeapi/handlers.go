package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// qrPNG is a 1x1 PNG; label content is not inspected by the client.
var qrPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// QRPNG is the image served for every label.
func QRPNG() []byte { return append([]byte(nil), qrPNG...) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

type handler func(w http.ResponseWriter, r *http.Request, u *user)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	open := func(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.intercept(w, r) {
				h(w, r)
			}
		}
	}
	authed := func(h handler, roles ...models.Role) http.HandlerFunc {
		return open(func(w http.ResponseWriter, r *http.Request) {
			u, err := s.authenticate(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if len(roles) > 0 && !hasRole(u.Role, roles) {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			h(w, r, u)
		})
	}
	collection := func(h handler, roles ...models.Role) http.HandlerFunc {
		return authed(func(w http.ResponseWriter, r *http.Request, u *user) {
			if c := r.PathValue("collection"); c != "assets" && c != "tools" {
				writeError(w, http.StatusNotFound, "Not found")
				return
			}
			h(w, r, u)
		}, roles...)
	}
	managers := []models.Role{models.RoleForeman, models.RoleSuperintendent}

	mux.HandleFunc("GET /api/health", open(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	}))

	mux.HandleFunc("POST /api/auth/login", open(s.login))
	mux.HandleFunc("POST /api/auth/register", open(s.register))
	mux.HandleFunc("GET /api/auth/me", authed(s.me))
	mux.HandleFunc("POST /api/auth/logout", authed(func(w http.ResponseWriter, r *http.Request, u *user) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logout successful"})
	}))
	mux.HandleFunc("GET /api/auth/users", authed(s.listUsers))
	mux.HandleFunc("POST /api/auth/change-role", authed(s.changeRole))

	mux.HandleFunc("GET /api/{collection}", collection(s.listAssets))
	mux.HandleFunc("POST /api/{collection}", collection(s.createAsset, managers...))
	mux.HandleFunc("PUT /api/{collection}/{id}", collection(s.updateAsset))
	mux.HandleFunc("DELETE /api/{collection}/{id}", collection(s.deleteAsset))
	mux.HandleFunc("POST /api/{collection}/{id}/checkout", collection(s.checkout))
	mux.HandleFunc("POST /api/{collection}/{id}/checkin", collection(s.checkin))
	mux.HandleFunc("POST /api/{collection}/{id}/serial", collection(s.serial))
	mux.HandleFunc("GET /api/{collection}/{id}/qr", collection(s.qr))

	mux.HandleFunc("GET /api/{collection}/materials", collection(s.listMaterials))
	mux.HandleFunc("POST /api/{collection}/materials", collection(s.createMaterial))
	mux.HandleFunc("PUT /api/{collection}/materials/{id}", collection(s.updateMaterial))
	mux.HandleFunc("DELETE /api/{collection}/materials/{id}", collection(s.deleteMaterial))

	mux.HandleFunc("POST /api/voice/update", authed(s.voiceUpdate))

	return mux
}

func hasRole(r models.Role, roles []models.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func (s *Server) authenticate(r *http.Request) (*user, error) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return nil, errors.New("Missing Authorization Header")
	}
	id, err := s.tokens.userID(strings.TrimPrefix(h, common.BearerPrefix))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("User not found")
	}
	cp := *u
	return &cp, nil
}

func decode(r *http.Request, v any) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) issue(w http.ResponseWriter, status int, u models.User, extra map[string]any) {
	tok, err := s.tokens.mint(u.ID, string(u.Role), s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := map[string]any{"success": true, "user": u, "access_token": tok}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decode(r, &in); err != nil || in.Username == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if u.Username == in.Username {
			found = u
			break
		}
	}
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(in.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.issue(w, http.StatusOK, found.User, nil)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.Registration
	if err := decode(r, &in); err != nil || in.Username == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email, and password required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Username == in.Username {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		if u.Email == in.Email {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	u := &user{
		User: models.User{ID: s.id(), Username: in.Username, Email: in.Email, Role: models.RoleTechnician, Company: in.Company},
		hash: hash,
	}
	s.users[u.ID] = u
	s.mu.Unlock()

	s.issue(w, http.StatusCreated, u.User, nil)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, u *user) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u.User})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	out := make([]models.User, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u.User)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": out})
}

func (s *Server) changeRole(w http.ResponseWriter, r *http.Request, u *user) {
	var in struct {
		Role string `json:"role"`
	}
	_ = decode(r, &in)
	role, err := models.ParseRole(in.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role. Must be: technician, foreman, or superintendent")
		return
	}

	s.mu.Lock()
	stored := s.users[u.ID]
	stored.Role = role
	updated := stored.User
	s.mu.Unlock()

	s.issue(w, http.StatusOK, updated, map[string]any{"message": fmt.Sprintf("Role changed to %s", role)})
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request, _ *user) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 10
	}
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)

	s.mu.Lock()
	all := s.sortedAssets()
	s.mu.Unlock()

	if userID > 0 {
		filtered := all[:0]
		for _, a := range all {
			if a.CheckedOutBy != nil && *a.CheckedOutBy == userID {
				filtered = append(filtered, a)
			}
		}
		all = filtered
	}

	total := len(all)
	pages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	items := []models.Asset{}
	if start < total {
		end := start + perPage
		if end > total {
			end = total
		}
		items = all[start:end]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                 true,
		r.PathValue("collection"): items,
		"total":                   total,
		"page":                    page,
		"pages":                   pages,
		"per_page":                perPage,
	})
}

func itemKey(r *http.Request) string {
	if r.PathValue("collection") == "tools" {
		return "tool"
	}
	return "asset"
}

func variant(r *http.Request) models.Variant {
	v, _ := models.VariantFor(r.PathValue("collection"))
	return v
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request, _ *user) {
	var in models.NewAsset
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if in.AssetType == "" {
		in.AssetType = "equipment"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.SerialNumber != "" {
		for _, a := range s.assets {
			if a.SerialNumber == in.SerialNumber {
				writeError(w, http.StatusBadRequest, "serial_number already exists")
				return
			}
		}
	}
	a := &models.Asset{
		ID: s.id(), Name: in.Name, AssetType: in.AssetType, Description: in.Description,
		SerialNumber: in.SerialNumber, Location: in.Location, IsAvailable: true, Status: variant(r).FreeStatus,
	}
	s.assets[a.ID] = a
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, itemKey(r): *a})
}

// withAsset runs fn on the stored asset under the lock.
func (s *Server) withAsset(w http.ResponseWriter, r *http.Request, fn func(a *models.Asset)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	fn(a)
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request, _ *user) {
	var in models.AssetUpdate
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.withAsset(w, r, func(a *models.Asset) {
		if in.Name != nil {
			a.Name = *in.Name
		}
		if in.Location != nil {
			a.Location = *in.Location
		}
		if in.Status != nil {
			a.Status = *in.Status
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, itemKey(r): *a})
	})
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request, _ *user) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	s.mu.Lock()
	_, ok := s.assets[id]
	delete(s.assets, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request, u *user) {
	var in struct {
		Location     string `json:"location"`
		CheckedOutBy *int64 `json:"checked_out_by"`
	}
	_ = decode(r, &in)
	if in.Location == "" {
		in.Location = "unknown"
	}
	s.withAsset(w, r, func(a *models.Asset) {
		by := u.ID
		if in.CheckedOutBy != nil {
			by = *in.CheckedOutBy
		}
		a.IsAvailable = false
		a.Status = variant(r).BusyStatus
		a.Location = in.Location
		a.CheckedOutBy = &by
		a.CheckoutDate = &models.Timestamp{Time: time.Now().UTC()}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, itemKey(r): *a})
	})
}

func (s *Server) checkin(w http.ResponseWriter, r *http.Request, _ *user) {
	var in struct {
		Location string `json:"location"`
	}
	_ = decode(r, &in)
	if in.Location == "" {
		in.Location = "warehouse"
	}
	s.withAsset(w, r, func(a *models.Asset) {
		a.IsAvailable = true
		a.Status = variant(r).FreeStatus
		a.Location = in.Location
		a.CheckedOutBy = nil
		a.CheckoutDate = nil
		writeJSON(w, http.StatusOK, map[string]any{"success": true, itemKey(r): *a})
	})
}

func (s *Server) serial(w http.ResponseWriter, r *http.Request, _ *user) {
	var in struct {
		SerialNumber string `json:"serial_number"`
	}
	_ = decode(r, &in)
	if strings.TrimSpace(in.SerialNumber) == "" {
		writeError(w, http.StatusBadRequest, "serial_number required")
		return
	}
	s.withAsset(w, r, func(a *models.Asset) {
		for _, other := range s.assets {
			if other.ID != a.ID && other.SerialNumber == in.SerialNumber {
				writeError(w, http.StatusBadRequest, "serial_number already exists")
				return
			}
		}
		a.SerialNumber = in.SerialNumber
		writeJSON(w, http.StatusOK, map[string]any{"success": true, itemKey(r): *a})
	})
}

func (s *Server) qr(w http.ResponseWriter, r *http.Request, _ *user) {
	s.withAsset(w, r, func(a *models.Asset) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(qrPNG)
	})
}

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	ms := s.sortedMaterials()
	s.mu.Unlock()

	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, map[string]any{
			"id": m.ID, "name": m.Name, "unit": m.Unit, "quantity": m.Quantity,
			"min_stock": m.MinStock, "needs_reorder": m.NeedsReorder(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "materials": out})
}

func (s *Server) createMaterial(w http.ResponseWriter, r *http.Request, _ *user) {
	var in models.NewMaterial
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if in.Unit == "" {
		in.Unit = "box"
	}
	s.mu.Lock()
	m := &models.Material{ID: s.id(), Name: in.Name, Unit: in.Unit, Quantity: in.Quantity, MinStock: in.MinStock}
	s.materials[m.ID] = m
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "material": *m})
}

func (s *Server) updateMaterial(w http.ResponseWriter, r *http.Request, _ *user) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	var in struct {
		Quantity *int `json:"quantity"`
		MinStock *int `json:"min_stock"`
	}
	_ = decode(r, &in)

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			writeError(w, http.StatusBadRequest, "quantity must be non-negative")
			return
		}
		m.Quantity = *in.Quantity
	}
	if in.MinStock != nil {
		m.MinStock = *in.MinStock
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "material": *m})
}

func (s *Server) deleteMaterial(w http.ResponseWriter, r *http.Request, _ *user) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	s.mu.Lock()
	_, ok := s.materials[id]
	delete(s.materials, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// voiceUpdate applies the configured voice result to the matching material,
// creating it when unknown.
func (s *Server) voiceUpdate(w http.ResponseWriter, r *http.Request, _ *user) {
	f, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer f.Close()
	audio, _ := io.ReadAll(f)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAudio = audio
	res := s.voice
	if res.Item == "" {
		writeError(w, http.StatusBadRequest, "Could not understand item name from audio")
		return
	}

	m := s.materialByName(res.Item)
	if m == nil {
		m = &models.Material{ID: s.id(), Name: res.Item, Unit: res.Type, MinStock: 5}
		s.materials[m.ID] = m
	}
	switch res.Action {
	case "remove":
		m.Quantity -= res.Quantity
		if m.Quantity < 0 {
			m.Quantity = 0
		}
	default:
		m.Quantity += res.Quantity
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"transcript": res.Transcript,
		"item":       res.Item,
		"action":     res.Action,
		"quantity":   res.Quantity,
		"type":       res.Type,
	})
}
