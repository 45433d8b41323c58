package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/internal/modal"
	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
)

// minCodeLength is the shortest OTP the client even sends to the backend.
const minCodeLength = 4

// State is the registration machine's position in the protocol.
type State int

const (
	StateEditing State = iota
	StateRequestingOTP
	StateAwaitingOTPEntry
	StateVerifyingOTP
	StateFinalizing
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateRequestingOTP:
		return "requesting_otp"
	case StateAwaitingOTPEntry:
		return "awaiting_otp_entry"
	case StateVerifyingOTP:
		return "verifying_otp"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when a step is already in flight; the UI disables
	// resubmission, this is the backstop.
	ErrBusy = errors.New("a registration step is already in flight")

	// ErrWrongCode signals that the backend rejected the entered OTP. The
	// modal stays open so the user can retry without restarting.
	ErrWrongCode = errors.New("wrong confirmation code")

	// ErrAborted is returned to a continuation whose attempt was cancelled
	// while its network call was in flight. Its result has been discarded.
	ErrAborted = errors.New("registration attempt abandoned")

	// ErrInvalidTransition is returned when a step is driven from the wrong
	// state, e.g. submitting a code before an OTP was requested.
	ErrInvalidTransition = errors.New("operation not valid in current state")
)

// OTPPrompt is the modal payload for the OTP entry overlay.
type OTPPrompt struct {
	Target string
	Method string
}

// Registration owns one registration attempt: the in-progress form, the
// request-OTP → verify-OTP → finalize sequence, and reconciling the outcome
// into the credential store.
//
// Steps are strictly sequential: finalize is never issued before verify
// resolved true, and the store write only happens after finalize succeeds.
type Registration struct {
	mu    sync.Mutex
	state State
	form  domain.RegistrationForm
	gen   int // incremented on cancel/reset; stale continuations are discarded
	busy  bool

	api    AuthAPI
	store  credstore.Store
	modal  *modal.Coordinator
	logger *slog.Logger
}

// NewRegistration creates a machine in the Editing state with an empty form.
func NewRegistration(api AuthAPI, store credstore.Store, overlay *modal.Coordinator, log *slog.Logger) *Registration {
	return &Registration{
		state:  StateEditing,
		api:    api,
		store:  store,
		modal:  overlay,
		logger: log,
	}
}

// State returns the machine's current state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Form returns a copy of the in-progress form for rendering.
func (r *Registration) Form() domain.RegistrationForm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form
}

// Update mutates the form field by field while the user is editing.
func (r *Registration) Update(mutate func(*domain.RegistrationForm)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateEditing {
		return ErrInvalidTransition
	}
	mutate(&r.form)
	return nil
}

// Submit validates the form locally and, only when it passes, asks the
// backend to dispatch an OTP. On success the OTP entry modal opens; on any
// failure the modal is never opened and the machine returns to Editing.
func (r *Registration) Submit(ctx context.Context) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	if r.state != StateEditing {
		r.mu.Unlock()
		return ErrInvalidTransition
	}

	if err := r.form.Validate(); err != nil {
		// Local rejection: state stays Editing, no network call is made.
		r.mu.Unlock()
		return err
	}

	r.state = StateRequestingOTP
	r.busy = true
	gen := r.gen
	ch := r.form.Challenge()
	r.mu.Unlock()

	err := r.api.RequestOTP(ctx, ch)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false

	if gen != r.gen {
		return ErrAborted
	}
	if err != nil {
		r.state = StateEditing
		r.logger.WarnContext(ctx, "otp request failed",
			slog.String("method", ch.Method),
			slog.String("error", err.Error()),
		)
		return err
	}

	r.state = StateAwaitingOTPEntry
	r.modal.Open(modal.ContentOTPEntry, OTPPrompt{Target: ch.Target, Method: ch.Method})
	r.logger.InfoContext(ctx, "otp dispatched", slog.String("method", ch.Method))
	return nil
}

// SubmitCode verifies the entered OTP and, when it matches, finalizes the
// registration and persists the session. A wrong code keeps the modal open
// for retry; a finalize failure closes it and returns the form to Editing
// because the code is single-use.
func (r *Registration) SubmitCode(ctx context.Context, code string) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	if r.state != StateAwaitingOTPEntry {
		r.mu.Unlock()
		return ErrInvalidTransition
	}

	code = strings.TrimSpace(code)
	if len(code) < minCodeLength {
		// Stay in AwaitingOTPEntry; the modal remains open.
		r.mu.Unlock()
		return clienterrors.InvalidInput("enter the confirmation code", map[string]string{
			"Code": fmt.Sprintf("must be at least %d characters", minCodeLength),
		})
	}

	r.state = StateVerifyingOTP
	r.busy = true
	gen := r.gen
	target := r.form.Challenge().Target
	r.mu.Unlock()

	verified, err := r.api.VerifyOTP(ctx, target, code)

	r.mu.Lock()
	if gen != r.gen {
		r.busy = false
		r.mu.Unlock()
		return ErrAborted
	}
	if err != nil {
		r.busy = false
		r.state = StateAwaitingOTPEntry
		r.mu.Unlock()
		return err
	}
	if !verified {
		r.busy = false
		r.state = StateAwaitingOTPEntry
		r.mu.Unlock()
		return fmt.Errorf("%w: %w", clienterrors.ErrValidation, ErrWrongCode)
	}

	r.state = StateFinalizing
	r.form.Code = code
	form := r.form
	r.mu.Unlock()

	session, err := r.api.FinalizeRegistration(ctx, &form)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false

	if gen != r.gen {
		return ErrAborted
	}
	if err != nil {
		// The code was consumed; the user must re-request an OTP.
		r.state = StateEditing
		r.form.Code = ""
		r.modal.Close()
		r.logger.WarnContext(ctx, "registration finalize failed", slog.String("error", err.Error()))
		return err
	}

	if err := r.store.SaveSession(ctx, session); err != nil {
		r.state = StateEditing
		r.form.Code = ""
		r.modal.Close()
		r.logger.ErrorContext(ctx, "session persist failed", slog.String("error", err.Error()))
		return fmt.Errorf("persist session: %w", err)
	}

	r.state = StateComplete
	r.form = domain.RegistrationForm{}
	r.modal.Close()
	r.logger.InfoContext(ctx, "registration complete", slog.String("user_id", userID(session)))
	return nil
}

// Cancel abandons the OTP step: the modal closes and the machine returns to
// Editing with the form intact. A network call already in flight completes
// on the backend but its continuation is discarded, so no session mutation
// can result from it.
func (r *Registration) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateComplete {
		return
	}
	r.gen++
	r.state = StateEditing
	r.form.Code = ""
	r.modal.Close()
}

// Reset discards the attempt entirely, including the form. Used when the
// registration screen unmounts.
func (r *Registration) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.state = StateEditing
	r.form = domain.RegistrationForm{}
	r.modal.Close()
}

func userID(s *domain.Session) string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
