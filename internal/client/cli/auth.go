package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
)

// Prompt indirections; tests swap getPassword to avoid the terminal.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Register prompts for username, email, company and password and creates
// the account. The new session is signed in straight away.
func (a *App) Register(ctx context.Context, _ []string) error {
	var reg models.Registration
	var err error

	if reg.Username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
		return err
	}
	if reg.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if reg.Company, err = getSimpleText(a.reader, "Enter company (optional)", a.out); err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	reg.Password = string(password)

	u, err := a.session.Register(ctx, reg)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s! You are registered as %s.\n", u.Username, u.Role)
	return a.afterSignIn(ctx)
}

// Login prompts for credentials, signs in and loads the first page.
func (a *App) Login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Login(ctx, username, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.Username, u.Role)
	return a.afterSignIn(ctx)
}

func (a *App) afterSignIn(ctx context.Context) error {
	if err := a.inventory.SetPage(ctx, 1); err != nil {
		return err
	}
	return a.List(ctx, nil)
}

// Logout ends the session. The local credential is removed even when the
// backend cannot be reached.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) WhoAmI(_ context.Context, _ []string) error {
	u, ok := a.session.User()
	if !ok {
		return common.ErrNoCredential
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s", u.Username, u.Email, u.Role)
	if u.Company != "" {
		fmt.Fprintf(a.out, " company=%s", u.Company)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Role switches the signed-in user's role.
func (a *App) Role(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("role <technician|foreman|superintendent>")
	}
	role, err := models.ParseRole(strings.ToLower(args[0]))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	u, err := a.session.ChangeRole(ctx, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Role is now %s\n", u.Role)
	return nil
}

func (a *App) Users(ctx context.Context, _ []string) error {
	users, err := a.session.Users(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{fmt.Sprint(u.ID), u.Username, string(u.Role), u.Company})
	}
	return renderTable(a.out, []string{"ID", "Username", "Role", "Company"}, rows)
}
