package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"github.com/dmitrijs2005/sitekeeper/internal/netx"
	"github.com/google/uuid"
)

const maxResponseBytes = 16 << 20

// HTTPClient talks to the REST backend for one collection ("assets" or
// "tools"). It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	collection string
	http       *http.Client
	log        logging.Logger
}

// NewHTTPClient builds a client rooted at baseURL, e.g.
// "http://localhost:3000/api".
func NewHTTPClient(baseURL, collection string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		http:       &http.Client{Timeout: timeout},
		log:        log.With("module", "api"),
	}
}

// envelope is the part every backend response shares.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// request describes one call.
type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}

// do executes r and returns the raw body of a 2xx response. Transport
// failures wrap ErrUnavailable; other statuses become *APIError.
func (c *HTTPClient) do(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		if netx.IsTransportError(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	c.log.Debug(ctx, "request done",
		"method", r.method, "path", r.path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(body, &env)
		return nil, &APIError{Status: resp.StatusCode, Message: env.message()}
	}
	return body, nil
}

// call runs r and decodes a JSON response into out, which must embed
// envelope. A success:false body is reported as *APIError.
func (c *HTTPClient) call(ctx context.Context, r request, out interface{ env() envelope }) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if env := out.env(); env.failed() {
		return &APIError{Status: http.StatusOK, Message: env.message()}
	}
	return nil
}

func (e *envelope) env() envelope { return *e }

func (c *HTTPClient) itemPath(id int64, suffix string) string {
	return "/" + c.collection + "/" + strconv.FormatInt(id, 10) + suffix
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out struct {
		envelope
		Status string `json:"status"`
	}
	if err := c.call(ctx, request{method: http.MethodGet, path: "/health"}, &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "healthy" && out.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

type authResponse struct {
	envelope
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

func (c *HTTPClient) authCall(ctx context.Context, r request) (AuthResult, error) {
	var out authResponse
	if err := c.call(ctx, r, &out); err != nil {
		return AuthResult{}, err
	}
	if out.User == nil || out.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("%w: missing user or access_token", ErrMalformedPayload)
	}
	return AuthResult{User: *out.User, Token: out.AccessToken}, nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (AuthResult, error) {
	body, err := jsonBody(creds)
	if err != nil {
		return AuthResult{}, err
	}
	return c.authCall(ctx, request{method: http.MethodPost, path: "/auth/login", body: body, contentType: "application/json"})
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (AuthResult, error) {
	body, err := jsonBody(reg)
	if err != nil {
		return AuthResult{}, err
	}
	return c.authCall(ctx, request{method: http.MethodPost, path: "/auth/register", body: body, contentType: "application/json"})
}

func (c *HTTPClient) Me(ctx context.Context, token string) (models.User, error) {
	var out struct {
		envelope
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, request{method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return models.User{}, err
	}
	if out.User == nil {
		return models.User{}, fmt.Errorf("%w: missing user", ErrMalformedPayload)
	}
	return *out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	var out envelope
	return c.call(ctx, request{method: http.MethodPost, path: "/auth/logout", token: token}, &out)
}

func (c *HTTPClient) Users(ctx context.Context, token string) ([]models.User, error) {
	var out struct {
		envelope
		Users []models.User `json:"users"`
	}
	if err := c.call(ctx, request{method: http.MethodGet, path: "/auth/users", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// ChangeRole returns the updated user. Token is empty when the backend did
// not reissue one.
func (c *HTTPClient) ChangeRole(ctx context.Context, token string, role models.Role) (AuthResult, error) {
	body, err := jsonBody(map[string]string{"role": string(role)})
	if err != nil {
		return AuthResult{}, err
	}
	var out authResponse
	r := request{method: http.MethodPost, path: "/auth/change-role", token: token, body: body, contentType: "application/json"}
	if err := c.call(ctx, r, &out); err != nil {
		return AuthResult{}, err
	}
	if out.User == nil {
		return AuthResult{}, fmt.Errorf("%w: missing user", ErrMalformedPayload)
	}
	return AuthResult{User: *out.User, Token: out.AccessToken}, nil
}

type listResponse struct {
	envelope
	Assets  *[]models.Asset `json:"assets"`
	Tools   *[]models.Asset `json:"tools"`
	Items   *[]models.Asset `json:"items"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	PerPage int             `json:"per_page"`
}

func (l listResponse) items() (*[]models.Asset, bool) {
	for _, s := range []*[]models.Asset{l.Assets, l.Tools, l.Items} {
		if s != nil {
			return s, true
		}
	}
	return nil, false
}

func (c *HTTPClient) ListAssets(ctx context.Context, token string, q ListQuery) (models.Page, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.UserID > 0 {
		query.Set("user_id", strconv.FormatInt(q.UserID, 10))
	}

	var out listResponse
	if err := c.call(ctx, request{method: http.MethodGet, path: "/" + c.collection, query: query, token: token}, &out); err != nil {
		return models.Page{}, err
	}
	items, ok := out.items()
	if !ok {
		return models.Page{}, fmt.Errorf("%w: no %s in response", ErrMalformedPayload, c.collection)
	}

	page := models.Page{Items: *items, Total: out.Total, Page: out.Page, Pages: out.Pages, PerPage: out.PerPage}
	if page.Items == nil {
		page.Items = []models.Asset{}
	}
	if page.Page == 0 {
		page.Page = q.Page
	}
	return page, nil
}

type itemResponse struct {
	envelope
	Asset *models.Asset `json:"asset"`
	Tool  *models.Asset `json:"tool"`
	Item  *models.Asset `json:"item"`
}

func (c *HTTPClient) CreateAsset(ctx context.Context, token string, a models.NewAsset) (models.Asset, error) {
	body, err := jsonBody(a)
	if err != nil {
		return models.Asset{}, err
	}
	var out itemResponse
	r := request{method: http.MethodPost, path: "/" + c.collection, token: token, body: body, contentType: "application/json"}
	if err := c.call(ctx, r, &out); err != nil {
		return models.Asset{}, err
	}
	for _, it := range []*models.Asset{out.Asset, out.Tool, out.Item} {
		if it != nil {
			return *it, nil
		}
	}
	return models.Asset{}, fmt.Errorf("%w: no created item in response", ErrMalformedPayload)
}

func (c *HTTPClient) UpdateAsset(ctx context.Context, token string, id int64, u models.AssetUpdate) error {
	body, err := jsonBody(u)
	if err != nil {
		return err
	}
	var out envelope
	return c.call(ctx, request{method: http.MethodPut, path: c.itemPath(id, ""), token: token, body: body, contentType: "application/json"}, &out)
}

func (c *HTTPClient) DeleteAsset(ctx context.Context, token string, id int64) error {
	var out envelope
	return c.call(ctx, request{method: http.MethodDelete, path: c.itemPath(id, ""), token: token}, &out)
}

func (c *HTTPClient) CheckOut(ctx context.Context, token string, id int64, req CheckoutRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return err
	}
	var out envelope
	return c.call(ctx, request{method: http.MethodPost, path: c.itemPath(id, "/checkout"), token: token, body: body, contentType: "application/json"}, &out)
}

func (c *HTTPClient) CheckIn(ctx context.Context, token string, id int64, location string) error {
	body, err := jsonBody(map[string]string{"location": location})
	if err != nil {
		return err
	}
	var out envelope
	return c.call(ctx, request{method: http.MethodPost, path: c.itemPath(id, "/checkin"), token: token, body: body, contentType: "application/json"}, &out)
}

func (c *HTTPClient) SetSerial(ctx context.Context, token string, id int64, serial string) error {
	body, err := jsonBody(map[string]string{"serial_number": serial})
	if err != nil {
		return err
	}
	var out envelope
	return c.call(ctx, request{method: http.MethodPost, path: c.itemPath(id, "/serial"), token: token, body: body, contentType: "application/json"}, &out)
}

// AssetQR returns the PNG label for an item.
func (c *HTTPClient) AssetQR(ctx context.Context, token string, id int64) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: c.itemPath(id, "/qr"), token: token})
}

func (c *HTTPClient) materialsPath(suffix string) string {
	return "/" + c.collection + "/materials" + suffix
}

func (c *HTTPClient) ListMaterials(ctx context.Context, token string) ([]models.Material, error) {
	var out struct {
		envelope
		Materials *[]models.Material `json:"materials"`
	}
	if err := c.call(ctx, request{method: http.MethodGet, path: c.materialsPath(""), token: token}, &out); err != nil {
		return nil, err
	}
	if out.Materials == nil {
		return nil, fmt.Errorf("%w: no materials in response", ErrMalformedPayload)
	}
	if *out.Materials == nil {
		return []models.Material{}, nil
	}
	return *out.Materials, nil
}

func (c *HTTPClient) CreateMaterial(ctx context.Context, token string, m models.NewMaterial) (models.Material, error) {
	body, err := jsonBody(m)
	if err != nil {
		return models.Material{}, err
	}
	var out struct {
		envelope
		Material *models.Material `json:"material"`
	}
	r := request{method: http.MethodPost, path: c.materialsPath(""), token: token, body: body, contentType: "application/json"}
	if err := c.call(ctx, r, &out); err != nil {
		return models.Material{}, err
	}
	if out.Material == nil {
		return models.Material{}, fmt.Errorf("%w: no material in response", ErrMalformedPayload)
	}
	return *out.Material, nil
}

func (c *HTTPClient) SetMaterialQuantity(ctx context.Context, token string, id int64, quantity int) error {
	body, err := jsonBody(map[string]int{"quantity": quantity})
	if err != nil {
		return err
	}
	var out envelope
	path := c.materialsPath("/" + strconv.FormatInt(id, 10))
	return c.call(ctx, request{method: http.MethodPut, path: path, token: token, body: body, contentType: "application/json"}, &out)
}

func (c *HTTPClient) DeleteMaterial(ctx context.Context, token string, id int64) error {
	var out envelope
	path := c.materialsPath("/" + strconv.FormatInt(id, 10))
	return c.call(ctx, request{method: http.MethodDelete, path: path, token: token}, &out)
}

// SubmitVoice uploads a recording as the multipart field "audio".
func (c *HTTPClient) SubmitVoice(ctx context.Context, token string, up VoiceUpload) (models.VoiceResult, error) {
	if len(up.Data) == 0 {
		return models.VoiceResult{}, errors.New("empty recording")
	}
	body, ct, err := netx.MultipartFile("audio", up.Filename, up.ContentType, up.Data)
	if err != nil {
		return models.VoiceResult{}, fmt.Errorf("encode audio: %w", err)
	}

	var out struct {
		envelope
		models.VoiceResult
	}
	r := request{method: http.MethodPost, path: "/voice/update", token: token, body: body, contentType: ct}
	if err := c.call(ctx, r, &out); err != nil {
		return models.VoiceResult{}, err
	}
	return out.VoiceResult, nil
}
