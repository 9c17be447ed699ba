package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
)

// Toggle checks an item out when it is in, and in when it is out.
func (a *App) Toggle(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("toggle <id>")
	}
	id, err := parseID(args[0], "toggle <id>")
	if err != nil {
		return err
	}
	if err := a.checkout.Toggle(ctx, id); err != nil {
		return err
	}
	a.printItem(id)
	return nil
}

func (a *App) CheckOut(ctx context.Context, args []string) error {
	const usage = "checkout <id> [location]"
	if len(args) < 1 {
		return errUsage(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	if err := a.checkout.CheckOut(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	a.printItem(id)
	return nil
}

func (a *App) CheckIn(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("checkin <id>")
	}
	id, err := parseID(args[0], "checkin <id>")
	if err != nil {
		return err
	}
	if err := a.checkout.CheckIn(ctx, id); err != nil {
		return err
	}
	a.printItem(id)
	return nil
}

func (a *App) printItem(id int64) {
	it, ok := a.inventory.Asset(id)
	if !ok {
		fmt.Fprintf(a.out, "Item %d updated\n", id)
		return
	}
	state := "checked in"
	if !it.IsAvailable {
		state = "checked out"
	}
	fmt.Fprintf(a.out, "%s (#%d) %s, %s, %s\n", it.Name, it.ID, state, it.Status, it.Location)
}

func (a *App) Serial(ctx context.Context, args []string) error {
	const usage = "serial <id> <serial number>"
	if len(args) < 2 {
		return errUsage(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	if err := a.assets.SetSerial(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	a.printItem(id)
	return nil
}

func (a *App) Move(ctx context.Context, args []string) error {
	const usage = "move <id> <location>"
	if len(args) < 2 {
		return errUsage(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	if err := a.assets.Move(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	a.printItem(id)
	return nil
}

// AddItem prompts for the new item's fields. Only the name is required.
func (a *App) AddItem(ctx context.Context, _ []string) error {
	var na models.NewAsset
	var err error

	if na.Name, err = getSimpleText(a.reader, "Enter name", a.out); err != nil {
		return err
	}
	if na.AssetType, err = getSimpleText(a.reader, "Enter type (optional)", a.out); err != nil {
		return err
	}
	if na.SerialNumber, err = getSimpleText(a.reader, "Enter serial number (optional)", a.out); err != nil {
		return err
	}
	if na.Location, err = getSimpleText(a.reader, "Enter location (default Warehouse)", a.out); err != nil {
		return err
	}
	if na.Description, err = GetMultiline(a.reader, "Enter description (optional)", a.out); err != nil {
		return err
	}

	created, err := a.assets.Create(ctx, na)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s (#%d)\n", created.Name, created.ID)
	return nil
}

func (a *App) DeleteItem(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("delitem <id>")
	}
	id, err := parseID(args[0], "delitem <id>")
	if err != nil {
		return err
	}
	if err := a.assets.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted item %d\n", id)
	return nil
}

// QR saves the item's QR label through the configured label sink.
func (a *App) QR(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("qr <id>")
	}
	id, err := parseID(args[0], "qr <id>")
	if err != nil {
		return err
	}
	loc, err := a.assets.ExportQR(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Label saved to %s\n", loc)
	return nil
}
