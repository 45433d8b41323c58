package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/internal/flow"
	"github.com/gbaghdasaryan1/subscription-client/internal/gate"
	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
)

const usage = `usage: subclient <command>

commands:
  register         create an account (interactive, OTP-verified)
  login            sign in with email/phone and password
  status           show session state and cached profile
  subscriptions    list subscriptions (fetches and caches when signed in)
  change-password  rotate the account password
  logout           clear the local session
  delete-account   remove the account and clear the local session
`

// Runner executes one CLI command against the assembled app.
type Runner struct {
	app *App
	in  *bufio.Reader
	out io.Writer
}

// NewRunner creates a command runner reading prompts from in.
func NewRunner(app *App, in io.Reader, out io.Writer) *Runner {
	return &Runner{app: app, in: bufio.NewReader(in), out: out}
}

// Run dispatches a command by name. Unknown commands print usage.
func (r *Runner) Run(ctx context.Context, command string) error {
	switch command {
	case "register":
		return r.register(ctx)
	case "login":
		return r.login(ctx)
	case "status":
		return r.status(ctx)
	case "subscriptions":
		return r.subscriptions(ctx)
	case "change-password":
		return r.changePassword(ctx)
	case "logout":
		return r.app.Auth.Logout(ctx)
	case "delete-account":
		return r.deleteAccount(ctx)
	default:
		fmt.Fprint(r.out, usage)
		if command == "" || command == "help" {
			return nil
		}
		return fmt.Errorf("unknown command %q", command)
	}
}

func (r *Runner) prompt(label string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", label)
	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// reportError renders a normalized error the way the app's alert dialogs do:
// a title per error kind, the backend message, then field details.
func (r *Runner) reportError(err error) {
	fmt.Fprintf(r.out, "%s: %s\n", clienterrors.Title(err), err.Error())

	var cerr *clienterrors.Error
	if errors.As(err, &cerr) && len(cerr.Fields) > 0 {
		names := make([]string, 0, len(cerr.Fields))
		for name := range cerr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(r.out, "  %s: %s\n", name, cerr.Fields[name])
		}
	}
}

func (r *Runner) register(ctx context.Context) error {
	machine := r.app.Registration

	err := machine.Update(func(f *domain.RegistrationForm) {
		f.FullName, _ = r.prompt("full name")
		f.Email, _ = r.prompt("email (blank to use phone)")
		f.Phone, _ = r.prompt("phone (blank if email given)")
		f.Gender, _ = r.prompt("gender (male/female)")
		f.Password, _ = r.prompt("password")
		terms, _ := r.prompt("accept terms? (yes/no)")
		f.AcceptTerms = strings.EqualFold(terms, "yes") || strings.EqualFold(terms, "y")
	})
	if err != nil {
		return err
	}

	if err := machine.Submit(ctx); err != nil {
		r.reportError(err)
		return err
	}

	if state := r.app.Overlay.State(); state.IsOpen {
		if p, ok := state.Payload.(flow.OTPPrompt); ok {
			fmt.Fprintf(r.out, "a confirmation code was sent via %s to %s\n", p.Method, p.Target)
		}
	}

	// The code entry loop mirrors the OTP dialog: wrong codes retry, an
	// empty line cancels.
	for {
		code, err := r.prompt("code (blank to cancel)")
		if err != nil {
			return err
		}
		if code == "" {
			machine.Cancel()
			fmt.Fprintln(r.out, "registration cancelled")
			return nil
		}

		err = machine.SubmitCode(ctx, code)
		if err == nil {
			break
		}
		r.reportError(err)
		if machine.State() != flow.StateAwaitingOTPEntry {
			return err
		}
	}

	fmt.Fprintln(r.out, "registered and signed in")
	return nil
}

func (r *Runner) login(ctx context.Context) error {
	identifier, err := r.prompt("email or phone")
	if err != nil {
		return err
	}
	password, err := r.prompt("password")
	if err != nil {
		return err
	}

	session, err := r.app.Auth.Login(ctx, identifier, password)
	if err != nil {
		r.reportError(err)
		return err
	}

	name := identifier
	if session.User != nil && session.User.FullName != "" {
		name = session.User.FullName
	}
	fmt.Fprintf(r.out, "signed in as %s\n", name)
	return nil
}

func (r *Runner) status(ctx context.Context) error {
	if r.app.Gate.RequireSession(ctx) != gate.Allow {
		fmt.Fprintln(r.out, "signed out")
		return nil
	}

	fmt.Fprintln(r.out, "signed in")
	profile, err := r.app.Store.Profile(ctx)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return nil
		}
		return err
	}
	fmt.Fprintf(r.out, "  name:  %s\n", profile.FullName)
	if profile.Email != "" {
		fmt.Fprintf(r.out, "  email: %s\n", profile.Email)
	}
	if profile.Phone != "" {
		fmt.Fprintf(r.out, "  phone: %s\n", profile.Phone)
	}
	return nil
}

func (r *Runner) subscriptions(ctx context.Context) error {
	var subs []domain.Subscription
	var err error

	if r.app.Gate.RequireSession(ctx) == gate.Allow {
		subs, err = r.app.Auth.RefreshSubscriptions(ctx)
		if err != nil && clienterrors.IsRetryable(err) {
			// Offline: fall back to the cached snapshot.
			subs, err = r.app.Auth.CachedSubscriptions(ctx)
		}
	} else {
		subs, err = r.app.Auth.CachedSubscriptions(ctx)
	}
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			fmt.Fprintln(r.out, "no subscriptions")
			return nil
		}
		r.reportError(err)
		return err
	}

	if len(subs) == 0 {
		fmt.Fprintln(r.out, "no subscriptions")
		return nil
	}
	now := time.Now()
	for _, sub := range subs {
		state := "inactive"
		if sub.IsActive(now) {
			state = "active"
		}
		fmt.Fprintf(r.out, "  %s  %s  visits left: %d  expires: %s\n",
			sub.PlanName, state, sub.VisitsLeft, sub.ExpiresAt.Format("2006-01-02"))
	}
	return nil
}

func (r *Runner) changePassword(ctx context.Context) error {
	current, err := r.prompt("current password")
	if err != nil {
		return err
	}
	next, err := r.prompt("new password")
	if err != nil {
		return err
	}

	if err := r.app.Auth.ChangePassword(ctx, current, next); err != nil {
		r.reportError(err)
		return err
	}
	fmt.Fprintln(r.out, "password changed")
	return nil
}

func (r *Runner) deleteAccount(ctx context.Context) error {
	confirm, err := r.prompt("delete the account permanently? (yes/no)")
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") {
		fmt.Fprintln(r.out, "aborted")
		return nil
	}

	if err := r.app.Auth.DeleteAccount(ctx); err != nil {
		r.reportError(err)
		return err
	}
	fmt.Fprintln(r.out, "account deleted")
	return nil
}
