package roundtrip

import (
	"context"
	"fmt"
)

// Login signs in through the login tab and waits for the home page with its
// welcome text. Failures are logged and reported as false.
func Login(ctx context.Context, page Page, cfg Config, rep *Reporter) bool {
	sel := cfg.Selectors
	creds := cfg.Credentials

	rep.Info("opening the login page")
	err := runActions(ctx,
		func() error { return page.Navigate(ctx, cfg.URL("/login")) },
		func() error { return page.Click(ctx, sel.LoginTab) },
		func() error {
			rep.Info("entering username: %s", creds.Username)
			return page.Fill(ctx, sel.LoginUsername, creds.Username)
		},
		func() error {
			rep.Info("entering password")
			return page.Fill(ctx, sel.LoginPassword, creds.Password)
		},
		func() error {
			rep.Info("submitting the login form")
			return page.ClickText(ctx, sel.TabPanel, sel.LoginButtonText)
		},
		func() error { return waitForHome(ctx, page, cfg) },
	)
	if err != nil {
		rep.Error("login failed: %v", err)
		return false
	}

	rep.Success("logged in")
	return true
}

// RegisterAndLogin creates the account through the register tab. The app
// signs new accounts in directly. On any failure it falls back to Login,
// assuming the account already exists.
func RegisterAndLogin(ctx context.Context, page Page, cfg Config, rep *Reporter) bool {
	sel := cfg.Selectors
	creds := cfg.Credentials

	rep.Info("opening the login page")
	err := runActions(ctx,
		func() error { return page.Navigate(ctx, cfg.URL("/login")) },
		func() error { return page.Click(ctx, sel.RegisterTab) },
		func() error {
			rep.Info("entering username: %s", creds.Username)
			return page.Fill(ctx, sel.RegisterUsername, creds.Username)
		},
		func() error {
			rep.Info("entering password")
			return page.Fill(ctx, sel.RegisterPassword, creds.Password)
		},
		func() error {
			if creds.DisplayName == "" {
				return nil
			}
			rep.Info("entering display name: %s", creds.DisplayName)
			return page.Fill(ctx, sel.RegisterName, creds.DisplayName)
		},
		func() error {
			rep.Info("submitting the registration form")
			return page.ClickText(ctx, sel.TabPanel, sel.RegisterText)
		},
		func() error { return page.WaitForURL(ctx, cfg.URL("/"), cfg.StepTimeout) },
	)
	if err != nil {
		rep.Error("registration failed: %v", err)
		rep.Info("trying to log in with the existing account")
		return Login(ctx, page, cfg, rep)
	}

	rep.Success("account created and logged in")
	return true
}

// Authenticate logs in, registering first when login fails.
func Authenticate(ctx context.Context, page Page, cfg Config, rep *Reporter) (State, error) {
	if Login(ctx, page, cfg, rep) {
		return StateAuthLoggedIn, nil
	}
	if RegisterAndLogin(ctx, page, cfg, rep) {
		return StateAuthRegistered, nil
	}
	return StateFailed, fmt.Errorf("%w: %s", ErrAuthFailed, cfg.Credentials.Username)
}

func waitForHome(ctx context.Context, page Page, cfg Config) error {
	if err := page.WaitForURL(ctx, cfg.URL("/"), cfg.StepTimeout); err != nil {
		return err
	}
	return page.WaitForText(ctx, cfg.Selectors.WelcomeText, cfg.StepTimeout)
}

// runActions runs steps in order and stops at the first error.
func runActions(ctx context.Context, steps ...func() error) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
