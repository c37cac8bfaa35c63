package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/plugin"
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/store/memory"
)

// Report collects the outcome of every scripted session.
type Report struct {
	Sessions []Result

	// States counts stored sessions by state once the script has run.
	States map[session.State]int
}

// Result is one scripted session's outcome.
type Result struct {
	Label      string
	ID         session.ID
	Settlement *session.Settlement
	Err        error
}

// Failed counts sessions that stopped on an error.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Sessions {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Run plays sc against a fresh engine on a memory store, printing lifecycle
// events to out as they commit. opts are applied after the scenario's own
// settings.
func Run(ctx context.Context, sc *Scenario, out io.Writer, opts ...balancer.Option) (*Report, error) {
	mode, err := balancer.ParseIDMode(sc.IDMode)
	if err != nil {
		return nil, err
	}

	all := []balancer.Option{balancer.WithIDMode(mode)}
	if sc.Currency != "" {
		all = append(all, balancer.WithCurrency(sc.Currency))
	}
	all = append(all, opts...)
	all = append(all, balancer.WithPlugin(&printer{sc: sc, out: out}))

	b := balancer.New(memory.New(), all...)
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	defer b.Stop() //nolint:errcheck // memory store close cannot fail

	report := &Report{}
	for i := range sc.Sessions {
		res := runSession(ctx, b, sc, &sc.Sessions[i])
		report.Sessions = append(report.Sessions, res)
		if res.Err == nil {
			continue
		}
		fmt.Fprintf(out, "error: %s: %v\n", res.Label, res.Err)
		if !sc.KeepGoing {
			return report, res.Err
		}
	}

	stored, err := b.ListSessions(ctx, session.ListOpts{})
	if err != nil {
		return report, err
	}
	report.States = make(map[session.State]int, 3)
	for _, s := range stored {
		report.States[s.State]++
	}
	return report, nil
}

// Summary renders the state counts, e.g. "1 created, 0 active, 2 settled".
func (r *Report) Summary() string {
	parts := make([]string, 0, 3)
	for _, st := range []session.State{session.StateCreated, session.StateActive, session.StateSettled} {
		parts = append(parts, fmt.Sprintf("%d %s", r.States[st], st))
	}
	return strings.Join(parts, ", ")
}

func runSession(ctx context.Context, b *balancer.Balancer, sc *Scenario, s *Session) Result {
	res := Result{Label: s.Name}
	fail := func(step string, err error) Result {
		if res.Label == "" {
			res.Label = s.label(res.ID)
		}
		res.Err = fmt.Errorf("%s: %w", step, err)
		return res
	}

	creator, err := sc.Address(s.Creator)
	if err != nil {
		return fail("creator", err)
	}
	invited, err := sc.Addresses(s.Invited)
	if err != nil {
		return fail("invited", err)
	}

	if b.IDMode() == balancer.IDModeExplicit {
		res.ID = session.ID(s.ID)
		err = b.CreateSessionWithID(ctx, res.ID, creator, invited)
	} else {
		res.ID, err = b.CreateSession(ctx, creator, invited)
	}
	if err != nil {
		return fail("create", err)
	}
	res.Label = s.label(res.ID)

	joins := s.Joins
	if joins == nil {
		joins = s.Invited
	}
	for _, ref := range joins {
		p, err := sc.Address(ref)
		if err != nil {
			return fail("join", err)
		}
		if err := b.JoinSession(ctx, res.ID, p); err != nil {
			return fail("join "+ref, err)
		}
	}

	if s.Checkout == nil {
		return res
	}
	caller, err := sc.Address(s.Checkout.Caller)
	if err != nil {
		return fail("checkout caller", err)
	}
	expenses, err := s.Checkout.ParseExpenses(b.Currency())
	if err != nil {
		return fail("checkout expenses", err)
	}
	if res.Settlement, err = b.Checkout(ctx, res.ID, caller, expenses); err != nil {
		return fail("checkout", err)
	}
	return res
}

// WriteSettlement prints the receipt as a participant/paid/balance table.
func WriteSettlement(w io.Writer, sc *Scenario, label string, st *session.Settlement) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t\t\n", label)
	fmt.Fprintf(tw, "PARTICIPANT\tPAID\tBALANCE\n")
	for i, bal := range st.Balances {
		paid := ""
		if i < len(st.Expenses) {
			paid = st.Expenses[i].FormatMajor()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.Name(bal.Participant), paid, signed(bal.Amount.FormatMajor()))
	}
	fmt.Fprintf(tw, "total\t%s\t\n", st.Total.FormatMajor())
	fmt.Fprintf(tw, "share\t%s\t\n", st.Share.FormatMajor())
	fmt.Fprintf(tw, "remainder\t%s\t\n", st.Remainder.FormatMajor())
	return tw.Flush()
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") || strings.Trim(s, "0.") == "" {
		return s
	}
	return "+" + s
}

// printer writes one line per committed lifecycle event.
type printer struct {
	sc  *Scenario
	out io.Writer
}

var (
	_ plugin.OnSessionCreated      = (*printer)(nil)
	_ plugin.OnParticipantJoined   = (*printer)(nil)
	_ plugin.OnSessionStateChanged = (*printer)(nil)
	_ plugin.OnSessionSettled      = (*printer)(nil)
)

func (p *printer) Name() string { return "scenario-printer" }

func (p *printer) OnSessionCreated(_ context.Context, evt session.SessionCreated) error {
	names := make([]string, len(evt.Invited))
	for i, a := range evt.Invited {
		names[i] = p.sc.Name(a)
	}
	_, err := fmt.Fprintf(p.out, "session %s created by %s, invited %s\n",
		evt.SessionID, p.sc.Name(evt.Creator), strings.Join(names, ", "))
	return err
}

func (p *printer) OnParticipantJoined(_ context.Context, evt session.ParticipantJoined) error {
	_, err := fmt.Fprintf(p.out, "session %s: %s joined\n", evt.SessionID, p.sc.Name(evt.Participant))
	return err
}

func (p *printer) OnSessionStateChanged(_ context.Context, evt session.SessionStateChanged) error {
	_, err := fmt.Fprintf(p.out, "session %s: %s\n", evt.SessionID, evt.State)
	return err
}

func (p *printer) OnSessionSettled(_ context.Context, evt session.SessionSettled) error {
	_, err := fmt.Fprintf(p.out, "session %s: settled by %s, receipt %s\n",
		evt.SessionID, p.sc.Name(evt.Settlement.SettledBy), evt.Settlement.ID)
	return err
}
