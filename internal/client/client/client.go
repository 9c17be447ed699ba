package client

import (
	"context"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
)

// AuthResult is what login, register and change-role hand back.
type AuthResult struct {
	User  models.User
	Token string
}

// ListQuery selects a page of the collection. Zero values are not sent.
type ListQuery struct {
	Page    int
	PerPage int
	UserID  int64
}

// CheckoutRequest is the body of a checkout call.
type CheckoutRequest struct {
	Location     string `json:"location"`
	CheckedOutBy *int64 `json:"checked_out_by,omitempty"`
}

// VoiceUpload is a finished recording ready to send.
type VoiceUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Client is the backend contract. Every method except Ping, Login and
// Register takes the bearer credential explicitly; callers own the session.
type Client interface {
	Ping(ctx context.Context) error

	Login(ctx context.Context, creds models.Credentials) (AuthResult, error)
	Register(ctx context.Context, reg models.Registration) (AuthResult, error)
	Me(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
	Users(ctx context.Context, token string) ([]models.User, error)
	ChangeRole(ctx context.Context, token string, role models.Role) (AuthResult, error)

	ListAssets(ctx context.Context, token string, q ListQuery) (models.Page, error)
	CreateAsset(ctx context.Context, token string, a models.NewAsset) (models.Asset, error)
	UpdateAsset(ctx context.Context, token string, id int64, u models.AssetUpdate) error
	DeleteAsset(ctx context.Context, token string, id int64) error
	CheckOut(ctx context.Context, token string, id int64, req CheckoutRequest) error
	CheckIn(ctx context.Context, token string, id int64, location string) error
	SetSerial(ctx context.Context, token string, id int64, serial string) error
	AssetQR(ctx context.Context, token string, id int64) ([]byte, error)

	ListMaterials(ctx context.Context, token string) ([]models.Material, error)
	CreateMaterial(ctx context.Context, token string, m models.NewMaterial) (models.Material, error)
	SetMaterialQuantity(ctx context.Context, token string, id int64, quantity int) error
	DeleteMaterial(ctx context.Context, token string, id int64) error

	SubmitVoice(ctx context.Context, token string, up VoiceUpload) (models.VoiceResult, error)
}
