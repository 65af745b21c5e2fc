package theme

import (
	"testing"

	"github.com/theirongolddev/kpicast/internal/model"
)

func TestByNameFallback(t *testing.T) {
	if got := ByName("tokyo-night").Name; got != "tokyo-night" {
		t.Errorf("ByName(tokyo-night) = %q", got)
	}
	if got := ByName("nope").Name; got != FlexokiDark.Name {
		t.Errorf("unknown theme = %q, want %q", got, FlexokiDark.Name)
	}
}

func TestTier(t *testing.T) {
	th := FlexokiDark
	tests := []struct {
		s    model.Status
		want string
	}{
		{model.StatusSafe, string(th.Safe)},
		{model.StatusWarning, string(th.Warning)},
		{model.StatusDanger, string(th.Danger)},
	}
	for _, tt := range tests {
		if got := string(th.Tier(tt.s)); got != tt.want {
			t.Errorf("Tier(%v) = %s, want %s", tt.s, got, tt.want)
		}
	}
}

func TestThemesDistinguishTiers(t *testing.T) {
	for _, th := range All {
		if th.Safe == th.Warning || th.Warning == th.Danger || th.Safe == th.Danger {
			t.Errorf("%s: tier colors must differ", th.Name)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(All) || names[0] != "flexoki-dark" {
		t.Errorf("Names() = %q", names)
	}
}
