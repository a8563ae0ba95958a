package gate

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gradbook-dev/gradbook/internal/errors"
)

// State is a password gate's position in its verification state machine.
type State string

const (
	// StateUnverified is the initial state: no prompt shown yet.
	StateUnverified State = "unverified"

	// StatePrompting means the prompt is visible and a submit is accepted.
	StatePrompting State = "prompting"

	// StateVerifying means a verification call (or its post-failure
	// cooldown) is in flight. Submits are rejected, not queued.
	StateVerifying State = "verifying"

	// StateVerified is terminal for the session: subsequent navigations to
	// the same graduation skip prompting.
	StateVerified State = "verified"

	// StateLockedOut suspends submits until the lockout elapses. Expiry is
	// timer-driven, never user-driven, and preserves the attempt count.
	StateLockedOut State = "locked_out"
)

// Verifier checks a candidate password against a graduation's configured
// secret. Implementations are expected to respect ctx cancellation.
type Verifier interface {
	Verify(ctx context.Context, entityID, candidate string) (bool, error)
}

const (
	// LockoutThreshold is the failed-attempt count that triggers lockout.
	LockoutThreshold = 5

	// DefaultVerifyTimeout bounds a single verification attempt.
	DefaultVerifyTimeout = 10 * time.Second

	lockoutBase       = 10 * time.Second
	lockoutCap        = 300 * time.Second
	transportCooldown = 2 * time.Second
)

// ErrVerificationInProgress rejects a submit while one is already in
// flight for the same session, preventing double-counted attempts.
var ErrVerificationInProgress = stderrors.New("gate: verification already in progress")

// lockoutDuration returns the lockout length after the nth failed attempt:
// 10s, 20s, 40s, 80s, 160s, then capped at 300s.
func lockoutDuration(attempts uint) time.Duration {
	shift := attempts - LockoutThreshold
	if shift >= 6 {
		return lockoutCap
	}
	d := lockoutBase << shift
	if d > lockoutCap {
		return lockoutCap
	}
	return d
}

// Gate is the password-verification state machine for one protected
// graduation within one session.
type Gate struct {
	entityID string
	verifier Verifier
	timeout  time.Duration
	now      func() time.Time
	after    func(time.Duration, func())
	logger   *slog.Logger

	mu           sync.Mutex
	state        State
	attempts     uint
	lockoutUntil time.Time
	epoch        uint64
	reprompt     func()
}

// Submit drives one verification attempt. It returns (true, nil) on
// success, (false, nil) on a wrong password that leaves the gate
// prompting, and (false, err) when the submit was rejected (in flight,
// locked out) or failed for transport reasons.
//
// Transport errors and timeouts never count against the attempt budget;
// the gate re-prompts automatically after a short cooldown.
func (g *Gate) Submit(ctx context.Context, candidate string) (bool, error) {
	g.mu.Lock()
	g.normalizeLocked()
	switch g.state {
	case StateVerified:
		g.mu.Unlock()
		return true, nil
	case StateVerifying:
		g.mu.Unlock()
		return false, ErrVerificationInProgress
	case StateLockedOut:
		remaining := g.lockoutUntil.Sub(g.now())
		g.mu.Unlock()
		return false, errors.Newf(errors.CategoryTooManyAttempts,
			"locked out for another %s", remaining.Round(time.Second)).
			WithEntity(g.entityID)
	}
	g.state = StateVerifying
	g.epoch++
	g.mu.Unlock()

	vctx, cancel := context.WithTimeout(ctx, g.timeout)
	ok, err := g.verifier.Verify(vctx, g.entityID, candidate)
	cancel()

	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		// Exceeding the verification bound is a transport failure, not a
		// wrong password. Either way the attempt count is untouched.
		category := errors.CategoryTransport
		if stderrors.Is(err, context.DeadlineExceeded) {
			category = errors.CategoryVerifyTimeout
		}
		g.scheduleCooldownLocked()
		gerr := errors.New(category, "password verification failed").
			WithEntity(g.entityID).
			Wrap(err)
		g.logger.Warn("password verification failed", gerr.LogArgs()...)
		return false, gerr
	}

	if ok {
		g.state = StateVerified
		g.attempts = 0
		g.lockoutUntil = time.Time{}
		return true, nil
	}

	g.attempts++
	if g.attempts >= LockoutThreshold {
		d := lockoutDuration(g.attempts)
		g.state = StateLockedOut
		g.lockoutUntil = g.now().Add(d)
		g.scheduleUnlockLocked(d)
		return false, errors.Newf(errors.CategoryTooManyAttempts,
			"too many failed attempts, locked out for %s", d).
			WithEntity(g.entityID)
	}
	g.state = StatePrompting
	return false, nil
}

// scheduleCooldownLocked holds the gate in StateVerifying for the
// transport cooldown, then re-prompts.
func (g *Gate) scheduleCooldownLocked() {
	epoch := g.epoch
	g.after(transportCooldown, func() {
		g.mu.Lock()
		fire := g.epoch == epoch && g.state == StateVerifying
		if fire {
			g.state = StatePrompting
		}
		reprompt := g.reprompt
		g.mu.Unlock()
		if fire && reprompt != nil {
			reprompt()
		}
	})
}

// scheduleUnlockLocked arms the lockout-expiry timer. The transition back
// to prompting requires no user action and keeps the attempt count.
func (g *Gate) scheduleUnlockLocked(d time.Duration) {
	epoch := g.epoch
	g.after(d, func() {
		g.mu.Lock()
		fire := g.epoch == epoch && g.state == StateLockedOut
		if fire {
			g.state = StatePrompting
			g.lockoutUntil = time.Time{}
		}
		reprompt := g.reprompt
		g.mu.Unlock()
		if fire && reprompt != nil {
			reprompt()
		}
	})
}

// normalizeLocked lazily clears an elapsed lockout. The armed timer
// normally does this; the lazy check keeps the gate correct even if a
// caller races the timer.
func (g *Gate) normalizeLocked() {
	if g.state == StateLockedOut && !g.lockoutUntil.After(g.now()) {
		g.state = StatePrompting
		g.lockoutUntil = time.Time{}
	}
}

// Prompt marks the prompt as shown, moving a fresh gate out of
// StateUnverified. Every other state is left alone.
func (g *Gate) Prompt() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateUnverified {
		g.state = StatePrompting
	}
}

// State returns the gate's current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.normalizeLocked()
	return g.state
}

// Attempts returns the failed-attempt count. It resets only on success.
func (g *Gate) Attempts() uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// LockedUntil returns when the current lockout ends, or the zero time.
func (g *Gate) LockedUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockoutUntil
}

// SetRepromptFunc registers the callback fired when a cooldown or lockout
// elapses and the prompt should be shown again.
func (g *Gate) SetRepromptFunc(f func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reprompt = f
}

// Keeper owns the per-graduation password gates for one session. Gates are
// created on first use and live for the session, so a verified graduation
// stays verified across navigations.
type Keeper struct {
	verifier Verifier
	timeout  time.Duration
	now      func() time.Time
	after    func(time.Duration, func())
	logger   *slog.Logger

	mu    sync.Mutex
	gates map[string]*Gate
}

// KeeperOption configures a Keeper.
type KeeperOption func(*Keeper)

// WithVerifyTimeout overrides the per-attempt verification bound.
func WithVerifyTimeout(d time.Duration) KeeperOption {
	return func(k *Keeper) { k.timeout = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) KeeperOption {
	return func(k *Keeper) { k.now = now }
}

// WithTimerFunc overrides timer scheduling, for tests.
func WithTimerFunc(after func(time.Duration, func())) KeeperOption {
	return func(k *Keeper) { k.after = after }
}

// WithLogger sets the keeper's logger.
func WithLogger(logger *slog.Logger) KeeperOption {
	return func(k *Keeper) { k.logger = logger }
}

// NewKeeper creates a Keeper backed by the given verifier.
func NewKeeper(verifier Verifier, opts ...KeeperOption) *Keeper {
	k := &Keeper{
		verifier: verifier,
		timeout:  DefaultVerifyTimeout,
		now:      time.Now,
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:   slog.Default(),
		gates:    make(map[string]*Gate),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Gate returns the gate for a graduation, creating it on first use.
func (k *Keeper) Gate(entityID string) *Gate {
	k.mu.Lock()
	defer k.mu.Unlock()
	g, ok := k.gates[entityID]
	if !ok {
		g = &Gate{
			entityID: entityID,
			verifier: k.verifier,
			timeout:  k.timeout,
			now:      k.now,
			after:    k.after,
			logger:   k.logger,
			state:    StateUnverified,
		}
		k.gates[entityID] = g
	}
	return g
}

// Verified reports whether the session has already verified the
// graduation's password.
func (k *Keeper) Verified(entityID string) bool {
	k.mu.Lock()
	g, ok := k.gates[entityID]
	k.mu.Unlock()
	return ok && g.State() == StateVerified
}
