package gate

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gradbook-dev/gradbook/internal/errors"
)

// fakeClock drives the gate's clock and timers deterministically.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer
}

type fakeTimer struct {
	at time.Time
	f  func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, fakeTimer{at: c.now.Add(d), f: f})
}

// Advance moves the clock forward and fires due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []fakeTimer
	for _, tm := range c.timers {
		if !tm.at.After(c.now) {
			due = append(due, tm)
		} else {
			pending = append(pending, tm)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, tm := range due {
		tm.f()
	}
}

// scriptVerifier returns canned results in order.
type scriptVerifier struct {
	mu      sync.Mutex
	results []verifyResult
	calls   int
}

type verifyResult struct {
	ok  bool
	err error
}

func (v *scriptVerifier) Verify(_ context.Context, _, _ string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if len(v.results) == 0 {
		return false, nil
	}
	r := v.results[0]
	v.results = v.results[1:]
	return r.ok, r.err
}

func (v *scriptVerifier) push(n int, r verifyResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := 0; i < n; i++ {
		v.results = append(v.results, r)
	}
}

func newTestKeeper(v Verifier, clock *fakeClock) *Keeper {
	return NewKeeper(v,
		WithClock(clock.Now),
		WithTimerFunc(clock.After),
	)
}

func TestSubmitSuccess(t *testing.T) {
	v := &scriptVerifier{}
	v.push(1, verifyResult{ok: true})
	k := newTestKeeper(v, newFakeClock())
	g := k.Gate("g1")

	ok, err := g.Submit(context.Background(), "letmein")
	if !ok || err != nil {
		t.Fatalf("Expected success, got ok=%v err=%v", ok, err)
	}
	if g.State() != StateVerified {
		t.Errorf("Expected verified state, got %s", g.State())
	}
	if !k.Verified("g1") {
		t.Error("Expected keeper to report the graduation verified")
	}
	if k.Verified("other") {
		t.Error("Expected other graduations to stay unverified")
	}

	// Verification is durably cached for the session.
	ok, err = g.Submit(context.Background(), "anything")
	if !ok || err != nil {
		t.Errorf("Expected verified gate to short-circuit, got ok=%v err=%v", ok, err)
	}
}

func TestFirstFourFailuresNeverLockOut(t *testing.T) {
	v := &scriptVerifier{}
	v.push(4, verifyResult{ok: false})
	k := newTestKeeper(v, newFakeClock())
	g := k.Gate("g1")

	for i := 1; i <= 4; i++ {
		ok, err := g.Submit(context.Background(), "wrong")
		if ok {
			t.Fatalf("attempt %d: expected failure", i)
		}
		if err != nil {
			t.Fatalf("attempt %d: expected plain wrong-password outcome, got %v", i, err)
		}
		if g.State() != StatePrompting {
			t.Fatalf("attempt %d: expected prompting, got %s", i, g.State())
		}
		if g.Attempts() != uint(i) {
			t.Fatalf("attempt %d: expected count %d, got %d", i, i, g.Attempts())
		}
	}
}

func TestFifthFailureLocksOutTenSeconds(t *testing.T) {
	clock := newFakeClock()
	v := &scriptVerifier{}
	v.push(5, verifyResult{ok: false})
	k := newTestKeeper(v, clock)
	g := k.Gate("g1")

	for i := 0; i < 4; i++ {
		g.Submit(context.Background(), "wrong")
	}
	_, err := g.Submit(context.Background(), "wrong")
	if !errors.IsTooManyAttempts(err) {
		t.Fatalf("Expected lockout on attempt 5, got %v", err)
	}
	if g.State() != StateLockedOut {
		t.Fatalf("Expected locked out, got %s", g.State())
	}
	if got := g.LockedUntil().Sub(clock.Now()); got != 10*time.Second {
		t.Errorf("Expected 10s lockout, got %s", got)
	}

	// Submits during lockout are rejected without touching the counter.
	_, err = g.Submit(context.Background(), "wrong")
	if !errors.IsTooManyAttempts(err) {
		t.Fatalf("Expected rejection during lockout, got %v", err)
	}
	if g.Attempts() != 5 {
		t.Errorf("Expected attempt count unchanged during lockout, got %d", g.Attempts())
	}

	// Expiry is timer-driven and preserves the count.
	reprompted := false
	g.SetRepromptFunc(func() { reprompted = true })
	clock.Advance(10 * time.Second)
	if g.State() != StatePrompting {
		t.Errorf("Expected prompting after lockout expiry, got %s", g.State())
	}
	if !reprompted {
		t.Error("Expected reprompt callback on lockout expiry")
	}
	if g.Attempts() != 5 {
		t.Errorf("Expected attempt count preserved, got %d", g.Attempts())
	}
}

func TestLockoutBackoffDoublesAndCaps(t *testing.T) {
	clock := newFakeClock()
	v := &scriptVerifier{}
	v.push(12, verifyResult{ok: false})
	k := newTestKeeper(v, clock)
	g := k.Gate("g1")

	for i := 0; i < 4; i++ {
		g.Submit(context.Background(), "wrong")
	}

	expected := []time.Duration{
		10 * time.Second,  // attempt 5
		20 * time.Second,  // attempt 6
		40 * time.Second,  // attempt 7
		80 * time.Second,  // attempt 8
		160 * time.Second, // attempt 9
		300 * time.Second, // attempt 10, capped
		300 * time.Second, // attempt 11, still capped
	}

	for i, want := range expected {
		g.Submit(context.Background(), "wrong")
		if g.State() != StateLockedOut {
			t.Fatalf("failure %d: expected locked out, got %s", i+5, g.State())
		}
		if got := g.LockedUntil().Sub(clock.Now()); got != want {
			t.Fatalf("failure %d: expected %s lockout, got %s", i+5, want, got)
		}
		clock.Advance(want)
		if g.State() != StatePrompting {
			t.Fatalf("failure %d: expected prompting after expiry, got %s", i+5, g.State())
		}
	}
}

func TestLockoutDuration(t *testing.T) {
	tests := []struct {
		attempts uint
		want     time.Duration
	}{
		{5, 10 * time.Second},
		{6, 20 * time.Second},
		{7, 40 * time.Second},
		{8, 80 * time.Second},
		{9, 160 * time.Second},
		{10, 300 * time.Second},
		{20, 300 * time.Second},
	}
	for _, tt := range tests {
		if got := lockoutDuration(tt.attempts); got != tt.want {
			t.Errorf("lockoutDuration(%d): expected %s, got %s", tt.attempts, tt.want, got)
		}
	}
}

func TestTransportErrorDoesNotCountAndCoolsDown(t *testing.T) {
	clock := newFakeClock()
	v := &scriptVerifier{}
	v.push(1, verifyResult{err: stderrors.New("connection refused")})
	k := newTestKeeper(v, clock)
	g := k.Gate("g1")

	_, err := g.Submit(context.Background(), "pw")
	if !errors.IsTransport(err) {
		t.Fatalf("Expected transport-tagged error, got %v", err)
	}
	if g.Attempts() != 0 {
		t.Errorf("Expected transport failure to not count, got %d attempts", g.Attempts())
	}

	// The gate holds in verifying during the cooldown, so a resubmit is
	// rejected rather than queued.
	if g.State() != StateVerifying {
		t.Fatalf("Expected verifying during cooldown, got %s", g.State())
	}
	if _, err := g.Submit(context.Background(), "pw"); err != ErrVerificationInProgress {
		t.Fatalf("Expected in-progress rejection during cooldown, got %v", err)
	}

	reprompted := false
	g.SetRepromptFunc(func() { reprompted = true })
	clock.Advance(2 * time.Second)
	if g.State() != StatePrompting {
		t.Errorf("Expected prompting after 2s cooldown, got %s", g.State())
	}
	if !reprompted {
		t.Error("Expected reprompt callback after cooldown")
	}
}

// timeoutVerifier blocks until the bounded context expires.
type timeoutVerifier struct{}

func (timeoutVerifier) Verify(ctx context.Context, _, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestVerificationTimeoutIsTransportNotWrongPassword(t *testing.T) {
	clock := newFakeClock()
	k := NewKeeper(timeoutVerifier{},
		WithClock(clock.Now),
		WithTimerFunc(clock.After),
		WithVerifyTimeout(10*time.Millisecond),
	)
	g := k.Gate("g1")

	_, err := g.Submit(context.Background(), "pw")
	if !errors.IsVerifyTimeout(err) {
		t.Fatalf("Expected verify-timeout category, got %v", err)
	}
	if g.Attempts() != 0 {
		t.Errorf("Expected timeout to not count as a failed attempt, got %d", g.Attempts())
	}
}

// blockingVerifier holds the call open until released.
type blockingVerifier struct {
	started chan struct{}
	release chan struct{}
}

func (v *blockingVerifier) Verify(ctx context.Context, _, _ string) (bool, error) {
	close(v.started)
	select {
	case <-v.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestConcurrentSubmitRejected(t *testing.T) {
	v := &blockingVerifier{started: make(chan struct{}), release: make(chan struct{})}
	k := newTestKeeper(v, newFakeClock())
	g := k.Gate("g1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Submit(context.Background(), "pw")
	}()

	<-v.started
	if _, err := g.Submit(context.Background(), "pw"); err != ErrVerificationInProgress {
		t.Errorf("Expected in-progress rejection, got %v", err)
	}

	close(v.release)
	<-done
	if g.State() != StateVerified {
		t.Errorf("Expected first submit to complete normally, got %s", g.State())
	}
}

func TestKeeperGatesArePerEntity(t *testing.T) {
	v := &scriptVerifier{}
	v.push(1, verifyResult{ok: false})
	v.push(1, verifyResult{ok: true})
	k := newTestKeeper(v, newFakeClock())

	k.Gate("g1").Submit(context.Background(), "wrong")
	k.Gate("g2").Submit(context.Background(), "right")

	if k.Gate("g1").Attempts() != 1 {
		t.Errorf("Expected g1 to carry its own attempt count, got %d", k.Gate("g1").Attempts())
	}
	if !k.Verified("g2") || k.Verified("g1") {
		t.Error("Expected verification state isolated per graduation")
	}
}

func TestPromptOnlyMovesFreshGates(t *testing.T) {
	v := &scriptVerifier{}
	v.push(1, verifyResult{ok: true})
	k := newTestKeeper(v, newFakeClock())
	g := k.Gate("g1")

	if g.State() != StateUnverified {
		t.Fatalf("Expected fresh gate unverified, got %s", g.State())
	}
	g.Prompt()
	if g.State() != StatePrompting {
		t.Errorf("Expected prompting after Prompt, got %s", g.State())
	}

	g.Submit(context.Background(), "letmein")
	g.Prompt()
	if g.State() != StateVerified {
		t.Errorf("Expected Prompt to leave verified gate alone, got %s", g.State())
	}
}
