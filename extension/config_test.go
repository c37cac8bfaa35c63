package extension

import (
	"errors"
	"testing"
	"time"
)

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{Currency: "usdt"})
	if got.IDMode != "auto" || got.Currency != "usdt" || got.HookTimeout != 5*time.Second {
		t.Errorf("got %+v", got)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml, prog   Config
		wantMode     string
		wantCurrency string
		wantRef      string
		wantMigrate  bool
		wantTimeout  time.Duration
	}{
		{
			name:         "yaml wins",
			yaml:         Config{IDMode: "explicit", Currency: "eur", HookTimeout: time.Second},
			prog:         Config{IDMode: "auto", Currency: "usdc", HookTimeout: time.Minute},
			wantMode:     "explicit",
			wantCurrency: "eur",
			wantTimeout:  time.Second,
		},
		{
			name:         "programmatic fills gaps",
			yaml:         Config{},
			prog:         Config{Currency: "usdt", CurrencyReference: "0xdac17f958d2ee523a2206206994597c13d831ec7", HookTimeout: time.Minute},
			wantMode:     "auto",
			wantCurrency: "usdt",
			wantRef:      "0xdac17f958d2ee523a2206206994597c13d831ec7",
			wantTimeout:  time.Minute,
		},
		{
			name:         "programmatic disable migrate",
			yaml:         Config{},
			prog:         Config{DisableMigrate: true},
			wantMode:     "auto",
			wantCurrency: "usdc",
			wantMigrate:  true,
			wantTimeout:  5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeConfigurations(tt.yaml, tt.prog)
			if got.IDMode != tt.wantMode {
				t.Errorf("id mode: got %q, want %q", got.IDMode, tt.wantMode)
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("currency: got %q, want %q", got.Currency, tt.wantCurrency)
			}
			if got.CurrencyReference != tt.wantRef {
				t.Errorf("currency ref: got %q, want %q", got.CurrencyReference, tt.wantRef)
			}
			if got.DisableMigrate != tt.wantMigrate {
				t.Errorf("disable migrate: got %v", got.DisableMigrate)
			}
			if got.HookTimeout != tt.wantTimeout {
				t.Errorf("hook timeout: got %v, want %v", got.HookTimeout, tt.wantTimeout)
			}
		})
	}
}

func TestBuildBalancerOpts(t *testing.T) {
	e := New(WithIDMode("explicit"))
	e.config = mergeWithDefaults(e.config)
	if _, err := e.buildBalancerOpts(); err != nil {
		t.Fatalf("buildBalancerOpts: %v", err)
	}

	bad := New(WithIDMode("sequential"))
	bad.config = mergeWithDefaults(bad.config)
	if _, err := bad.buildBalancerOpts(); err == nil {
		t.Fatal("expected error for unknown id mode")
	}
}

func TestBindConfigKeysReportsBindError(t *testing.T) {
	malformed := errors.New("hook_timeout: invalid duration \"soon\"")
	tests := []struct {
		name       string
		set        map[string]bool
		bindErr    map[string]error
		wantOK     bool
		wantLoaded string
		wantFailed map[string]error
	}{
		{
			name:   "nothing set",
			set:    map[string]bool{},
			wantOK: false,
		},
		{
			name:       "namespaced key binds",
			set:        map[string]bool{"extensions.balancer": true, "balancer": true},
			wantOK:     true,
			wantLoaded: "extensions.balancer",
		},
		{
			name:       "malformed block falls through to legacy key",
			set:        map[string]bool{"extensions.balancer": true, "balancer": true},
			bindErr:    map[string]error{"extensions.balancer": malformed},
			wantOK:     true,
			wantLoaded: "balancer",
			wantFailed: map[string]error{"extensions.balancer": malformed},
		},
		{
			name:       "only block malformed",
			set:        map[string]bool{"extensions.balancer": true},
			bindErr:    map[string]error{"extensions.balancer": malformed},
			wantOK:     false,
			wantFailed: map[string]error{"extensions.balancer": malformed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loaded string
			failed := map[string]error{}
			cfg, ok := bindConfigKeys(
				func(key string) bool { return tt.set[key] },
				func(key string, target any) error {
					if err := tt.bindErr[key]; err != nil {
						return err
					}
					target.(*Config).Currency = key
					return nil
				},
				func(key string) { loaded = key },
				func(key string, err error) { failed[key] = err },
			)

			if ok != tt.wantOK || loaded != tt.wantLoaded {
				t.Fatalf("ok=%v loaded=%q, want ok=%v loaded=%q", ok, loaded, tt.wantOK, tt.wantLoaded)
			}
			if ok && cfg.Currency != tt.wantLoaded {
				t.Errorf("config bound from %q, want %q", cfg.Currency, tt.wantLoaded)
			}
			if len(failed) != len(tt.wantFailed) {
				t.Fatalf("failed: got %v, want %v", failed, tt.wantFailed)
			}
			for key, want := range tt.wantFailed {
				if !errors.Is(failed[key], want) {
					t.Errorf("%s: got error %v, want %v", key, failed[key], want)
				}
			}
		})
	}
}
