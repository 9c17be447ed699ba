package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
)

// List refreshes the current page and the materials and prints the page.
// When the refresh fails the cached rows are still shown.
func (a *App) List(ctx context.Context, _ []string) error {
	err := a.inventory.Refresh(ctx)
	a.printPage()
	return err
}

func (a *App) printPage() {
	p := a.inventory.Assets()
	if len(p.Items) == 0 {
		fmt.Fprintf(a.out, "No %s\n", a.inventory.Variant().Collection)
		return
	}
	_ = renderTable(a.out, assetHeaders, assetRows(p.Items, a.checkout.Pending))
	fmt.Fprintf(a.out, "Page %d of %d (%d total)\n", max(p.Page, 1), max(p.Pages, 1), p.Total)
}

func (a *App) Page(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("page <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return errUsage("page <n>")
	}
	if err := a.inventory.SetPage(ctx, n); err != nil {
		return err
	}
	a.printPage()
	return nil
}

func (a *App) Next(ctx context.Context, _ []string) error {
	p := a.inventory.Assets()
	if p.Pages > 0 && a.inventory.Page() >= p.Pages {
		fmt.Fprintln(a.out, "Already on the last page")
		return nil
	}
	if err := a.inventory.NextPage(ctx); err != nil {
		return err
	}
	a.printPage()
	return nil
}

func (a *App) Prev(ctx context.Context, _ []string) error {
	if err := a.inventory.PrevPage(ctx); err != nil {
		return err
	}
	a.printPage()
	return nil
}

// Search filters the cached page by name or serial number.
func (a *App) Search(_ context.Context, args []string) error {
	hits := a.inventory.Search(strings.Join(args, " "))
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No matches")
		return nil
	}
	return renderTable(a.out, assetHeaders, assetRows(hits, a.checkout.Pending))
}

// Counts prints how many cached items are in each status tier.
func (a *App) Counts(_ context.Context, _ []string) error {
	counts := a.inventory.Counts()
	tiers := a.inventory.Variant().Tiers

	known := make(map[models.Status]bool, len(tiers))
	rows := make([][]string, 0, len(counts))
	for _, t := range tiers {
		known[t] = true
		rows = append(rows, []string{string(t), strconv.Itoa(counts[t])})
	}

	var extra []string
	for st := range counts {
		if !known[st] {
			extra = append(extra, string(st))
		}
	}
	sort.Strings(extra)
	for _, st := range extra {
		rows = append(rows, []string{st, strconv.Itoa(counts[models.Status(st)])})
	}
	return renderTable(a.out, []string{"Status", "Count"}, rows)
}

// Onsite lists who holds which items across the whole collection.
func (a *App) Onsite(ctx context.Context, _ []string) error {
	o, err := a.inventory.Onsite(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(o.Active))
	for _, e := range o.Active {
		names := make([]string, 0, len(e.Items))
		for _, it := range e.Items {
			names = append(names, fmt.Sprintf("%s (#%d)", it.Name, it.ID))
		}
		rows = append(rows, []string{e.User.Username, string(e.User.Role), strings.Join(names, ", ")})
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "Nobody has items checked out")
	} else if err := renderTable(a.out, []string{"User", "Role", "Items"}, rows); err != nil {
		return err
	}

	if len(o.Idle) > 0 {
		idle := make([]string, 0, len(o.Idle))
		for _, u := range o.Idle {
			idle = append(idle, u.Username)
		}
		fmt.Fprintf(a.out, "Not on site: %s\n", strings.Join(idle, ", "))
	}
	return nil
}
