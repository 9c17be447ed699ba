package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

const DefaultItemLocation = "Warehouse"

// LabelSink stores exported labels and returns where each one went.
type LabelSink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Assets manages items beyond checkout: create, edit, delete and QR labels.
type Assets struct {
	client  client.Client
	session *Session
	inv     *Inventory
	labels  LabelSink
	log     logging.Logger
}

func NewAssets(c client.Client, s *Session, inv *Inventory, labels LabelSink, log logging.Logger) *Assets {
	return &Assets{client: c, session: s, inv: inv, labels: labels, log: log.With("module", "assets")}
}

func (a *Assets) Create(ctx context.Context, na models.NewAsset) (models.Asset, error) {
	tok, err := a.session.RequireToken()
	if err != nil {
		return models.Asset{}, err
	}
	na.Name = strings.TrimSpace(na.Name)
	if na.Name == "" {
		return models.Asset{}, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	na.SerialNumber = strings.TrimSpace(na.SerialNumber)
	if strings.TrimSpace(na.Location) == "" {
		na.Location = DefaultItemLocation
	}

	created, err := a.client.CreateAsset(ctx, tok, na)
	if err != nil {
		a.session.Observe(ctx, err)
		return models.Asset{}, fmt.Errorf("create item: %w", err)
	}
	a.log.Info(ctx, "item created", "id", created.ID, "name", created.Name)
	a.inv.reconcile(ctx)
	return created, nil
}

// SetSerial records a serial number; it must not be blank.
func (a *Assets) SetSerial(ctx context.Context, id int64, serial string) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return fmt.Errorf("%w: serial number is required", common.ErrValidation)
	}
	return a.mutate(ctx, "set serial", id, func(ctx context.Context, tok string) error {
		return a.client.SetSerial(ctx, tok, id, serial)
	})
}

func (a *Assets) Move(ctx context.Context, id int64, location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("%w: location is required", common.ErrValidation)
	}
	return a.mutate(ctx, "move item", id, func(ctx context.Context, tok string) error {
		return a.client.UpdateAsset(ctx, tok, id, models.AssetUpdate{Location: &location})
	})
}

func (a *Assets) Delete(ctx context.Context, id int64) error {
	return a.mutate(ctx, "delete item", id, func(ctx context.Context, tok string) error {
		return a.client.DeleteAsset(ctx, tok, id)
	})
}

func (a *Assets) mutate(ctx context.Context, op string, id int64, call func(ctx context.Context, tok string) error) error {
	tok, err := a.session.RequireToken()
	if err != nil {
		return err
	}
	if err := call(ctx, tok); err != nil {
		a.session.Observe(ctx, err)
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	a.inv.reconcile(ctx)
	return nil
}

// LabelName is the file name of an item's QR label.
func LabelName(id int64) string {
	return fmt.Sprintf("asset_%d_qr.png", id)
}

// ExportQR downloads the item's QR label and hands it to the label sink.
func (a *Assets) ExportQR(ctx context.Context, id int64) (string, error) {
	tok, err := a.session.RequireToken()
	if err != nil {
		return "", err
	}
	png, err := a.client.AssetQR(ctx, tok, id)
	if err != nil {
		a.session.Observe(ctx, err)
		return "", fmt.Errorf("download label %d: %w", id, err)
	}
	loc, err := a.labels.Put(ctx, LabelName(id), png)
	if err != nil {
		return "", fmt.Errorf("store label %d: %w", id, err)
	}
	a.log.Info(ctx, "label exported", "id", id, "location", loc)
	return loc, nil
}
