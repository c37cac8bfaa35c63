// Package scenario loads YAML settlement scenarios and plays them against a
// Balancer.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// Scenario is a YAML document describing sessions to create, join and settle.
type Scenario struct {
	// Currency overrides the engine's settlement currency (default "usdc").
	Currency string `yaml:"currency"`

	// IDMode is "auto" (default) or "explicit".
	IDMode string `yaml:"id_mode"`

	// KeepGoing reports failed steps and moves on to the next session
	// instead of stopping.
	KeepGoing bool `yaml:"keep_going"`

	// Participants maps short names to addresses so sessions can refer to
	// "alice" instead of a hex string.
	Participants map[string]string `yaml:"participants"`

	Sessions []Session `yaml:"sessions"`
}

// Session is one session's script.
type Session struct {
	Name    string   `yaml:"name"`
	ID      uint64   `yaml:"id"` // explicit mode only
	Creator string   `yaml:"creator"`
	Invited []string `yaml:"invited"`

	// Joins lists who joins, in order. Nil means every invited participant.
	Joins []string `yaml:"joins"`

	Checkout *Checkout `yaml:"checkout"`
}

// Checkout describes the settling call. Expenses are major-unit decimals
// given in invited order.
type Checkout struct {
	Caller   string   `yaml:"caller"`
	Expenses []string `yaml:"expenses"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario file %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, err
	}
	if len(sc.Sessions) == 0 {
		return nil, fmt.Errorf("no sessions")
	}
	return sc, nil
}

// Address resolves a participant name or hex address.
func (sc *Scenario) Address(ref string) (types.Address, error) {
	if hex, ok := sc.Participants[ref]; ok {
		ref = hex
	}
	return types.ParseAddress(ref)
}

// Addresses resolves a list of participant references.
func (sc *Scenario) Addresses(refs []string) ([]types.Address, error) {
	out := make([]types.Address, len(refs))
	for i, r := range refs {
		a, err := sc.Address(r)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// Name returns the participant name for addr, or its hex form.
func (sc *Scenario) Name(addr types.Address) string {
	for name, hex := range sc.Participants {
		if a, err := types.ParseAddress(hex); err == nil && a == addr {
			return name
		}
	}
	return addr.Hex()
}

// ParseExpenses parses the checkout amounts in currency.
func (c *Checkout) ParseExpenses(currency string) ([]types.Money, error) {
	out := make([]types.Money, len(c.Expenses))
	for i, raw := range c.Expenses {
		m, err := types.ParseMajor(strings.TrimSpace(raw), currency)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// label names a session in output.
func (s *Session) label(id session.ID) string {
	if s.Name != "" {
		return fmt.Sprintf("%s (#%s)", s.Name, id)
	}
	return "#" + id.String()
}
