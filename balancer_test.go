package balancer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/store/memory"
	"github.com/xraph/balancer/types"
)

var (
	owner = types.AddressFromUint64(0xA0)
	alice = types.AddressFromUint64(0xA1)
	bob   = types.AddressFromUint64(0xB2)
	carol = types.AddressFromUint64(0xC3)
	dave  = types.AddressFromUint64(0xD4)
)

// eventLog records every lifecycle event it receives, in order.
type eventLog struct {
	mu     sync.Mutex
	events []any
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) add(e any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) OnSessionCreated(_ context.Context, evt session.SessionCreated) error {
	return l.add(evt)
}

func (l *eventLog) OnParticipantJoined(_ context.Context, evt session.ParticipantJoined) error {
	return l.add(evt)
}

func (l *eventLog) OnSessionStateChanged(_ context.Context, evt session.SessionStateChanged) error {
	return l.add(evt)
}

func (l *eventLog) OnSessionSettled(_ context.Context, evt session.SessionSettled) error {
	return l.add(evt)
}

func (l *eventLog) snapshot() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.events...)
}

func (l *eventLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *eventLog) stateChanges(state session.State) int {
	n := 0
	for _, e := range l.snapshot() {
		if sc, ok := e.(session.SessionStateChanged); ok && sc.State == state {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newBalancer(t *testing.T, opts ...balancer.Option) (*balancer.Balancer, *eventLog) {
	t.Helper()
	events := &eventLog{}
	base := []balancer.Option{
		balancer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		balancer.WithPlugin(events),
		balancer.WithClock(func() time.Time { return fixedNow }),
	}
	b := balancer.New(memory.New(), append(base, opts...)...)
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	return b, events
}

func activeSession(t *testing.T, b *balancer.Balancer, invited ...types.Address) session.ID {
	t.Helper()
	ctx := context.Background()
	sid, err := b.CreateSession(ctx, owner, invited)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range invited {
		if err := b.JoinSession(ctx, sid, p); err != nil {
			t.Fatal(err)
		}
	}
	return sid
}

func usdc(amounts ...int64) []types.Money {
	out := make([]types.Money, len(amounts))
	for i, a := range amounts {
		out[i] = types.USDC(a)
	}
	return out
}

// ──────────────────────────────────────────────────
// Session creation
// ──────────────────────────────────────────────────

func TestCreateSessionAllocatesSequentialIDs(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()

	first, err := b.CreateSession(ctx, owner, []types.Address{alice, bob, carol})
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.CreateSession(ctx, owner, []types.Address{alice})
	if err != nil {
		t.Fatal(err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("ids: got %d, %d; want 1, 2", first, second)
	}

	got := events.snapshot()
	want := session.SessionCreated{SessionID: 1, Creator: owner, Invited: []types.Address{alice, bob, carol}}
	if len(got) != 2 || !reflect.DeepEqual(got[0], want) {
		t.Errorf("first event: got %+v, want %+v", got[0], want)
	}

	s, err := b.GetSession(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if s.State != session.StateCreated || s.Joined.Len() != 0 || len(s.Balances) != 0 {
		t.Errorf("fresh session: %+v", s)
	}
	if s.Currency != types.USDCCurrency {
		t.Errorf("currency: got %s", s.Currency)
	}
	if !s.CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at: got %v, want %v", s.CreatedAt, fixedNow)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		creator types.Address
		invited []types.Address
		want    error
	}{
		{"empty invited", owner, nil, balancer.ErrNoParticipants},
		{"duplicate", owner, []types.Address{alice, bob, alice}, balancer.ErrDuplicateParticipant},
		{"zero creator", types.ZeroAddress, []types.Address{alice}, balancer.ErrInvalidAddress},
		{"zero invited", owner, []types.Address{alice, types.ZeroAddress}, balancer.ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, events := newBalancer(t)
			ctx := context.Background()

			if _, err := b.CreateSession(ctx, tt.creator, tt.invited); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if events.count() != 0 {
				t.Errorf("failed create emitted %d events", events.count())
			}

			// The failed attempt must not consume an id.
			sid, err := b.CreateSession(ctx, owner, []types.Address{alice})
			if err != nil {
				t.Fatal(err)
			}
			if sid != 1 {
				t.Errorf("next id after failure: got %d, want 1", sid)
			}
		})
	}
}

func TestIDModes(t *testing.T) {
	ctx := context.Background()

	t.Run("auto rejects explicit ids", func(t *testing.T) {
		b, _ := newBalancer(t)
		err := b.CreateSessionWithID(ctx, 5, owner, []types.Address{alice})
		if !errors.Is(err, balancer.ErrWrongIDMode) {
			t.Fatalf("got %v, want ErrWrongIDMode", err)
		}
		if ok, _ := b.SessionExists(ctx, 5); ok {
			t.Error("rejected create stored a session")
		}
	})

	t.Run("explicit rejects auto ids", func(t *testing.T) {
		b, _ := newBalancer(t, balancer.WithIDMode(balancer.IDModeExplicit))
		if _, err := b.CreateSession(ctx, owner, []types.Address{alice}); !errors.Is(err, balancer.ErrWrongIDMode) {
			t.Fatalf("got %v, want ErrWrongIDMode", err)
		}
	})

	t.Run("explicit rejects zero id", func(t *testing.T) {
		b, events := newBalancer(t, balancer.WithIDMode(balancer.IDModeExplicit))
		err := b.CreateSessionWithID(ctx, 0, owner, []types.Address{alice})
		var verr balancer.ValidationError
		if !errors.As(err, &verr) || verr.Field != "session_id" {
			t.Fatalf("got %v, want session_id ValidationError", err)
		}
		if events.count() != 0 {
			t.Errorf("events: got %d, want 0", events.count())
		}
	})

	t.Run("explicit duplicate", func(t *testing.T) {
		b, events := newBalancer(t, balancer.WithIDMode(balancer.IDModeExplicit))
		if err := b.CreateSessionWithID(ctx, 42, owner, []types.Address{alice, bob}); err != nil {
			t.Fatal(err)
		}
		before, _ := b.GetSession(ctx, 42)

		err := b.CreateSessionWithID(ctx, 42, carol, []types.Address{carol})
		if !errors.Is(err, balancer.ErrSessionAlreadyExists) {
			t.Fatalf("got %v, want ErrSessionAlreadyExists", err)
		}

		after, _ := b.GetSession(ctx, 42)
		if !reflect.DeepEqual(before, after) {
			t.Error("duplicate create changed the stored session")
		}
		if events.count() != 1 {
			t.Errorf("events: got %d, want 1", events.count())
		}
	})
}

func TestParseIDMode(t *testing.T) {
	tests := []struct {
		in      string
		want    balancer.IDMode
		wantErr bool
	}{
		{"", balancer.IDModeAuto, false},
		{"auto", balancer.IDModeAuto, false},
		{"Explicit", balancer.IDModeExplicit, false},
		{"random", 0, true},
	}
	for _, tt := range tests {
		got, err := balancer.ParseIDMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseIDMode(%q): got %v, %v", tt.in, got, err)
		}
	}
}

func TestSessionExists(t *testing.T) {
	b, _ := newBalancer(t)
	ctx := context.Background()

	if ok, err := b.SessionExists(ctx, 1); err != nil || ok {
		t.Fatalf("before create: got %v, %v", ok, err)
	}
	sid, _ := b.CreateSession(ctx, owner, []types.Address{alice})
	if ok, err := b.SessionExists(ctx, sid); err != nil || !ok {
		t.Fatalf("after create: got %v, %v", ok, err)
	}
	if _, err := b.GetSession(ctx, 99); !errors.Is(err, balancer.ErrSessionNotFound) || !balancer.IsNotFound(err) {
		t.Errorf("GetSession(99): got %v, want ErrSessionNotFound", err)
	}
}

func TestGetSessionReturnsCopy(t *testing.T) {
	b, _ := newBalancer(t)
	ctx := context.Background()
	sid, _ := b.CreateSession(ctx, owner, []types.Address{alice, bob})

	s, _ := b.GetSession(ctx, sid)
	s.Joined.Add(alice)
	s.State = session.StateSettled

	again, _ := b.GetSession(ctx, sid)
	if again.Joined.Len() != 0 || again.State != session.StateCreated {
		t.Error("mutating a returned session changed stored state")
	}
}

func TestListSessions(t *testing.T) {
	b, _ := newBalancer(t)
	ctx := context.Background()
	activeSession(t, b, alice)
	if _, err := b.CreateSession(ctx, owner, []types.Address{bob}); err != nil {
		t.Fatal(err)
	}

	active := session.StateActive
	got, err := b.ListSessions(ctx, session.ListOpts{State: &active})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("active sessions: got %d", len(got))
	}
	all, _ := b.ListSessions(ctx, session.ListOpts{Participant: bob})
	if len(all) != 1 || all[0].ID != 2 {
		t.Errorf("bob's sessions: got %d", len(all))
	}
}

// ──────────────────────────────────────────────────
// Membership
// ──────────────────────────────────────────────────

func TestJoinSessionErrors(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()
	sid, _ := b.CreateSession(ctx, owner, []types.Address{alice, bob})
	if err := b.JoinSession(ctx, sid, alice); err != nil {
		t.Fatal(err)
	}
	before, _ := b.GetSession(ctx, sid)
	baseline := events.count()

	tests := []struct {
		name   string
		id     session.ID
		caller types.Address
		want   error
	}{
		{"missing session", 99, alice, balancer.ErrSessionNotFound},
		{"not invited", sid, dave, balancer.ErrNotInvited},
		{"owner not invited", sid, owner, balancer.ErrNotInvited},
		{"already joined", sid, alice, balancer.ErrAlreadyJoined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.JoinSession(ctx, tt.id, tt.caller)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	after, _ := b.GetSession(ctx, sid)
	if !reflect.DeepEqual(before, after) {
		t.Error("failed joins changed the stored session")
	}
	if events.count() != baseline {
		t.Errorf("failed joins emitted %d events", events.count()-baseline)
	}
	if !balancer.IsMembershipError(b.JoinSession(ctx, sid, alice)) {
		t.Error("IsMembershipError should match ErrAlreadyJoined")
	}
}

func TestJoinActivatesOnLastJoin(t *testing.T) {
	orders := [][]types.Address{
		{alice, bob, carol},
		{carol, bob, alice},
		{bob, carol, alice},
	}

	for _, order := range orders {
		b, events := newBalancer(t)
		ctx := context.Background()
		sid, _ := b.CreateSession(ctx, owner, []types.Address{alice, bob, carol})

		for i, p := range order {
			ready, err := b.AllParticipantsJoined(ctx, sid)
			if err != nil {
				t.Fatal(err)
			}
			if ready {
				t.Fatalf("ready before join %d", i)
			}
			if err := b.JoinSession(ctx, sid, p); err != nil {
				t.Fatal(err)
			}
			s, _ := b.GetSession(ctx, sid)
			wantState := session.StateCreated
			if i == len(order)-1 {
				wantState = session.StateActive
			}
			if s.State != wantState {
				t.Errorf("after join %d: state %s, want %s", i, s.State, wantState)
			}
		}

		if ready, _ := b.AllParticipantsJoined(ctx, sid); !ready {
			t.Error("not ready after everyone joined")
		}
		if n := events.stateChanges(session.StateActive); n != 1 {
			t.Errorf("order %v: %d activation events, want 1", order, n)
		}

		got := events.snapshot()
		last := got[len(got)-1]
		if want := (session.SessionStateChanged{SessionID: sid, State: session.StateActive}); last != want {
			t.Errorf("last event: got %+v, want %+v", last, want)
		}
		if joined := got[len(got)-2]; joined != (session.ParticipantJoined{SessionID: sid, Participant: order[2]}) {
			t.Errorf("activation must follow the completing join, got %+v", joined)
		}
	}
}

func TestAllParticipantsJoinedMissing(t *testing.T) {
	b, _ := newBalancer(t)
	if _, err := b.AllParticipantsJoined(context.Background(), 3); !errors.Is(err, balancer.ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestConcurrentJoinsActivateOnce(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()

	invited := make([]types.Address, 16)
	for i := range invited {
		invited[i] = types.AddressFromUint64(uint64(i + 1))
	}
	sid, err := b.CreateSession(ctx, owner, invited)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(invited)*2)
	for _, p := range invited {
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- b.JoinSession(ctx, sid, p)
			}()
		}
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, balancer.ErrAlreadyJoined):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != len(invited) || dup != len(invited) {
		t.Errorf("joins: %d ok, %d duplicates; want %d each", ok, dup, len(invited))
	}
	if n := events.stateChanges(session.StateActive); n != 1 {
		t.Errorf("activation events: got %d, want 1", n)
	}
}

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

func TestCheckoutThreeWaySplit(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()
	sid := activeSession(t, b, alice, bob, carol)
	baseline := events.count()

	receipt, err := b.Checkout(ctx, sid, alice, usdc(100_000000, 50_000000, 70_000000))
	if err != nil {
		t.Fatal(err)
	}

	want := map[types.Address]string{
		alice: "26.666667",
		bob:   "-23.333333",
		carol: "-3.333333",
	}
	for p, major := range want {
		got, err := b.GetParticipantBalance(ctx, sid, p)
		if err != nil {
			t.Fatal(err)
		}
		if got.FormatMajor() != major {
			t.Errorf("%s: got %s, want %s", p, got.FormatMajor(), major)
		}
	}

	if receipt.ID.Prefix() != "stl" {
		t.Errorf("receipt id: got %s", receipt.ID)
	}
	if receipt.SettledBy != alice || receipt.Total.Amount != 220_000000 ||
		receipt.Share.Amount != 73_333333 || receipt.Remainder.Amount != 1 {
		t.Errorf("receipt: %+v", receipt)
	}
	if !receipt.SettledAt.Equal(fixedNow) {
		t.Errorf("settled_at: got %v", receipt.SettledAt)
	}
	if len(receipt.Balances) != 3 || receipt.Balances[1].Participant != bob {
		t.Errorf("receipt balances not in invitation order: %+v", receipt.Balances)
	}

	s, _ := b.GetSession(ctx, sid)
	if s.State != session.StateSettled {
		t.Errorf("state: got %s", s.State)
	}
	if sum := types.Sum(balanceAmounts(s)...); sum.Amount != 1 {
		t.Errorf("sum of balances: got %d, want 1", sum.Amount)
	}

	got := events.snapshot()[baseline:]
	if len(got) != 2 {
		t.Fatalf("checkout events: got %d, want 2", len(got))
	}
	if got[0] != (session.SessionStateChanged{SessionID: sid, State: session.StateSettled}) {
		t.Errorf("first checkout event: %+v", got[0])
	}
	settled, ok := got[1].(session.SessionSettled)
	if !ok || settled.SessionID != sid || settled.Settlement.ID.String() != receipt.ID.String() {
		t.Errorf("second checkout event: %+v", got[1])
	}
}

func balanceAmounts(s *session.Session) []types.Money {
	out := make([]types.Money, len(s.Balances))
	for i, b := range s.Balances {
		out[i] = b.Amount
	}
	return out
}

func TestCheckoutErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(t *testing.T, b *balancer.Balancer) session.ID
		caller   types.Address
		expenses []types.Money
		want     error
	}{
		{
			name:     "missing session",
			setup:    func(*testing.T, *balancer.Balancer) session.ID { return 77 },
			caller:   alice,
			expenses: usdc(1),
			want:     balancer.ErrSessionNotFound,
		},
		{
			name: "not active",
			setup: func(t *testing.T, b *balancer.Balancer) session.ID {
				sid, _ := b.CreateSession(ctx, owner, []types.Address{alice, bob})
				_ = b.JoinSession(ctx, sid, alice)
				return sid
			},
			caller:   alice,
			expenses: usdc(1, 2),
			want:     balancer.ErrNotActive,
		},
		{
			name:     "too few expenses",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   alice,
			expenses: usdc(1),
			want:     balancer.ErrLengthMismatch,
		},
		{
			name:     "too many expenses",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   alice,
			expenses: usdc(1, 2, 3),
			want:     balancer.ErrLengthMismatch,
		},
		{
			name:     "wrong currency",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   alice,
			expenses: []types.Money{types.USDC(1), types.USDT(1)},
			want:     balancer.ErrCurrencyMismatch,
		},
		{
			name:     "negative expense",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   alice,
			expenses: usdc(5, -1),
			want:     balancer.ErrNegativeAmount,
		},
		{
			name:     "overflow",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   alice,
			expenses: usdc(math.MaxInt64, 1),
			want:     balancer.ErrAmountOverflow,
		},
		{
			name:     "zero caller",
			setup:    func(t *testing.T, b *balancer.Balancer) session.ID { return activeSession(t, b, alice, bob) },
			caller:   types.ZeroAddress,
			expenses: usdc(1, 2),
			want:     balancer.ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, events := newBalancer(t)
			sid := tt.setup(t, b)
			before, _ := b.GetSession(ctx, sid)
			baseline := events.count()

			receipt, err := b.Checkout(ctx, sid, tt.caller, tt.expenses)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if receipt != nil {
				t.Error("failed checkout returned a receipt")
			}

			after, _ := b.GetSession(ctx, sid)
			if !reflect.DeepEqual(before, after) {
				t.Error("failed checkout changed the stored session")
			}
			if events.count() != baseline {
				t.Errorf("failed checkout emitted %d events", events.count()-baseline)
			}
		})
	}
}

func TestCheckoutTwiceFails(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()
	sid := activeSession(t, b, alice, bob)

	if _, err := b.Checkout(ctx, sid, alice, usdc(10, 0)); err != nil {
		t.Fatal(err)
	}
	before, _ := b.GetSession(ctx, sid)
	baseline := events.count()

	_, err := b.Checkout(ctx, sid, bob, usdc(0, 10))
	if !errors.Is(err, balancer.ErrAlreadySettled) {
		t.Fatalf("got %v, want ErrAlreadySettled", err)
	}
	if !errors.Is(err, balancer.ErrNotActive) {
		t.Error("ErrAlreadySettled should also match ErrNotActive")
	}
	if !balancer.IsSettlementError(err) {
		t.Error("IsSettlementError should match")
	}

	after, _ := b.GetSession(ctx, sid)
	if !reflect.DeepEqual(before, after) || events.count() != baseline {
		t.Error("second checkout changed state or emitted events")
	}
}

func TestGetParticipantBalance(t *testing.T) {
	b, _ := newBalancer(t)
	ctx := context.Background()
	sid := activeSession(t, b, alice, bob)

	got, err := b.GetParticipantBalance(ctx, sid, alice)
	if !errors.Is(err, balancer.ErrNotSettled) {
		t.Fatalf("before checkout: got %v, want ErrNotSettled", err)
	}
	if !got.Equal(types.Zero(types.USDCCurrency)) {
		t.Errorf("before checkout: got %v, want zero", got)
	}
	if _, err := b.GetSettlement(ctx, sid); !errors.Is(err, balancer.ErrNotSettled) {
		t.Errorf("GetSettlement before checkout: got %v", err)
	}

	if _, err := b.Checkout(ctx, sid, bob, usdc(3, 1)); err != nil {
		t.Fatal(err)
	}

	got, err = b.GetParticipantBalance(ctx, sid, alice)
	if err != nil || got.Amount != 1 {
		t.Errorf("alice: got %v, %v; want 1", got, err)
	}
	got, err = b.GetParticipantBalance(ctx, sid, bob)
	if err != nil || got.Amount != -1 {
		t.Errorf("bob: got %v, %v; want -1", got, err)
	}
	if _, err := b.GetParticipantBalance(ctx, sid, dave); !errors.Is(err, balancer.ErrNotParticipant) {
		t.Errorf("dave: got %v, want ErrNotParticipant", err)
	}
	if _, err := b.GetParticipantBalance(ctx, 99, alice); !errors.Is(err, balancer.ErrSessionNotFound) {
		t.Errorf("missing session: got %v", err)
	}

	receipt, err := b.GetSettlement(ctx, sid)
	if err != nil || receipt.SettledBy != bob {
		t.Errorf("GetSettlement: got %+v, %v", receipt, err)
	}
}

func TestCheckoutRoundingBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		expenses  []types.Money
		balances  []int64
		remainder int64
	}{
		{"one unit over three", usdc(1, 0, 0), []int64{1, 0, 0}, 1},
		{"two units over three", usdc(1, 1, 0), []int64{1, 1, 0}, 2},
		{"all zero", usdc(0, 0, 0), []int64{0, 0, 0}, 0},
		{"divisible", usdc(3, 0, 0), []int64{2, -1, -1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newBalancer(t)
			ctx := context.Background()
			sid := activeSession(t, b, alice, bob, carol)

			receipt, err := b.Checkout(ctx, sid, alice, tt.expenses)
			if err != nil {
				t.Fatal(err)
			}
			if receipt.Remainder.Amount != tt.remainder {
				t.Errorf("remainder: got %d, want %d", receipt.Remainder.Amount, tt.remainder)
			}
			for i, p := range []types.Address{alice, bob, carol} {
				got, _ := b.GetParticipantBalance(ctx, sid, p)
				if got.Amount != tt.balances[i] {
					t.Errorf("balance %d: got %d, want %d", i, got.Amount, tt.balances[i])
				}
			}
		})
	}
}

func TestCheckoutZeroSumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for iter := 0; iter < 50; iter++ {
		b, _ := newBalancer(t)
		n := 1 + rng.Intn(9)
		invited := make([]types.Address, n)
		expenses := make([]types.Money, n)
		for i := range invited {
			invited[i] = types.AddressFromUint64(uint64(100 + i))
			expenses[i] = types.USDC(rng.Int63n(1_000_000_000))
		}
		sid := activeSession(t, b, invited...)

		if _, err := b.Checkout(ctx, sid, invited[0], expenses); err != nil {
			t.Fatal(err)
		}
		s, _ := b.GetSession(ctx, sid)
		sum := types.Sum(balanceAmounts(s)...)
		if sum.Amount < 0 || sum.Amount > int64(n-1) {
			t.Errorf("n=%d: |sum| = %d exceeds n-1", n, sum.Amount)
		}
	}
}

func TestSingleParticipantSession(t *testing.T) {
	b, events := newBalancer(t)
	ctx := context.Background()
	sid, _ := b.CreateSession(ctx, owner, []types.Address{alice})

	if err := b.JoinSession(ctx, sid, alice); err != nil {
		t.Fatal(err)
	}
	if events.stateChanges(session.StateActive) != 1 {
		t.Error("single join should activate")
	}
	if _, err := b.Checkout(ctx, sid, alice, usdc(500)); err != nil {
		t.Fatal(err)
	}
	got, _ := b.GetParticipantBalance(ctx, sid, alice)
	if !got.IsZero() {
		t.Errorf("got %v, want zero", got)
	}
}

type capValidator struct{ limit int64 }

func (capValidator) Name() string { return "cap" }

func (v capValidator) ValidateCheckout(_ context.Context, _ *session.Session, expenses []types.Money) error {
	for _, e := range expenses {
		if e.Amount > v.limit {
			return errors.New("expense over cap")
		}
	}
	return nil
}

func TestCheckoutValidatorRejects(t *testing.T) {
	b, events := newBalancer(t, balancer.WithPlugin(capValidator{limit: 100}))
	ctx := context.Background()
	sid := activeSession(t, b, alice, bob)
	baseline := events.count()

	if _, err := b.Checkout(ctx, sid, alice, usdc(101, 0)); err == nil {
		t.Fatal("expected validator rejection")
	}
	s, _ := b.GetSession(ctx, sid)
	if s.State != session.StateActive || events.count() != baseline {
		t.Error("rejected checkout changed state or emitted events")
	}
	if _, err := b.Checkout(ctx, sid, alice, usdc(100, 0)); err != nil {
		t.Errorf("checkout under the cap: %v", err)
	}
}

func TestWithCurrency(t *testing.T) {
	b, _ := newBalancer(t, balancer.WithCurrency("USDT"), balancer.WithCurrencyReference("0xdAC17F958D2ee523a2206206994597C13D831ec7"))
	ctx := context.Background()
	sid := activeSession(t, b, alice, bob)

	if b.Currency() != types.USDTCurrency {
		t.Fatalf("currency: got %s", b.Currency())
	}
	if b.CurrencyReference() == "" {
		t.Error("currency reference not recorded")
	}
	if _, err := b.Checkout(ctx, sid, alice, usdc(1, 1)); !errors.Is(err, balancer.ErrCurrencyMismatch) {
		t.Errorf("usdc into a usdt engine: got %v", err)
	}
	if _, err := b.Checkout(ctx, sid, alice, []types.Money{types.USDT(4), types.USDT(2)}); err != nil {
		t.Fatal(err)
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

type failingMigrate struct {
	*memory.Store
}

func (failingMigrate) Migrate(context.Context) error { return errors.New("disk full") }

func TestStartMigrationFailure(t *testing.T) {
	b := balancer.New(failingMigrate{memory.New()},
		balancer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := b.Start(context.Background()); !errors.Is(err, balancer.ErrMigrationFailed) {
		t.Errorf("got %v, want ErrMigrationFailed", err)
	}
}

func TestStopClosesStore(t *testing.T) {
	b := balancer.New(memory.New(), balancer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Stop(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateSession(ctx, owner, []types.Address{alice}); !errors.Is(err, balancer.ErrStoreClosed) {
		t.Errorf("after stop: got %v, want ErrStoreClosed", err)
	}
}
