package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/client/services"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
)

// Materials refreshes and prints the material list.
func (a *App) Materials(ctx context.Context, _ []string) error {
	err := a.inventory.FetchMaterials(ctx)
	a.printMaterials()
	return err
}

func (a *App) printMaterials() {
	mats := a.inventory.Materials()
	if len(mats) == 0 {
		fmt.Fprintln(a.out, "No materials")
		return
	}
	_ = renderTable(a.out, materialHeaders, materialRows(mats))

	steps := make([]string, 0, len(services.QuickSteps))
	for _, d := range services.QuickSteps {
		steps = append(steps, fmt.Sprintf("%+d", d))
	}
	fmt.Fprintf(a.out, "Adjust with qty <id> <step>, e.g. %s\n", strings.Join(steps, " "))
}

// Quantity adjusts a material by a signed step, e.g. "qty 7 -1".
func (a *App) Quantity(ctx context.Context, args []string) error {
	const usage = "qty <id> <+n|-n>"
	if len(args) != 2 {
		return errUsage(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil || delta == 0 {
		return errUsage(usage)
	}

	qty, err := a.materials.Adjust(ctx, id, delta)
	if err != nil {
		return err
	}
	a.printMaterial(id, qty)
	return nil
}

func (a *App) SetQuantity(ctx context.Context, args []string) error {
	const usage = "setqty <id> <n>"
	if len(args) != 2 {
		return errUsage(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage(usage)
	}

	qty, err := a.materials.SetQuantity(ctx, id, n)
	if err != nil {
		return err
	}
	a.printMaterial(id, qty)
	return nil
}

func (a *App) printMaterial(id int64, qty int) {
	m, ok := a.inventory.Material(id)
	if !ok {
		fmt.Fprintf(a.out, "Material %d: %d\n", id, qty)
		return
	}
	line := fmt.Sprintf("%s: %d %s", m.Name, qty, m.Unit)
	if qty < m.MinStock {
		line += " (reorder)"
	}
	fmt.Fprintln(a.out, line)
}

// AddMaterial prompts for a new material. Unit and minimum stock default to
// box and 5.
func (a *App) AddMaterial(ctx context.Context, _ []string) error {
	var nm models.NewMaterial
	var err error

	if nm.Name, err = getSimpleText(a.reader, "Enter name", a.out); err != nil {
		return err
	}
	if nm.Unit, err = getSimpleText(a.reader, "Enter unit (default box)", a.out); err != nil {
		return err
	}
	if nm.Quantity, err = a.promptInt("Enter quantity (default 0)", 0); err != nil {
		return err
	}
	if nm.MinStock, err = a.promptInt("Enter minimum stock (default 5)", services.DefaultMaterialMinStock); err != nil {
		return err
	}

	m, err := a.materials.Create(ctx, nm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s (#%d)\n", m.Name, m.ID)
	return nil
}

func (a *App) promptInt(prompt string, def int) (int, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", common.ErrValidation, s)
	}
	return n, nil
}

func (a *App) DeleteMaterial(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("delmaterial <id>")
	}
	id, err := parseID(args[0], "delmaterial <id>")
	if err != nil {
		return err
	}
	if err := a.materials.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted material %d\n", id)
	return nil
}
