package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"

	"github.com/rs/zerolog"
)

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// fixtureConfig writes a KPI sheet with 14 months for two merchants, a
// threshold sheet covering two of the three default indicators, and a
// status sheet.
func fixtureConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	var kpi strings.Builder
	kpi.WriteString("가맹점구분번호,기준년월,폐업여부,매출안정성지표,경쟁우위 지표,고객 충성도 지표\n")
	for _, id := range []string{"A001", "B002"} {
		for i := 0; i < 14; i++ {
			ym := 202301 + (i/12)*100 + i%12
			fmt.Fprintf(&kpi, "%s,%d,0,%d.5,%d,%d\n", id, ym, 3+i%4, 2+i%3, 6+i%2)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Input.KPIPath = writeFixture(t, dir, "kpi.csv", kpi.String())
	cfg.Input.ThresholdPath = writeFixture(t, dir, "threshold.csv",
		"지표,경고임계치,위험임계치\n매출안정성지표,5,8\n고객 충성도 지표,1,2\n")
	cfg.Input.StatusPath = writeFixture(t, dir, "status.csv",
		"가맹점,지표,미래상태\nA001,매출안정성지표,위험\nB002,매출안정성지표,safe\n")
	cfg.Input.NoCache = true
	return cfg
}

func TestLoaderForecast(t *testing.T) {
	l := newLoader(fixtureConfig(t), zerolog.Nop(), nil)

	var calls int
	res, err := l.Forecast(func(current, total int) { calls++ })
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (outcomes %+v)", len(res.Rows), res.Outcomes)
	}
	if calls != 3 {
		t.Errorf("progress calls = %d, want 3", calls)
	}
	skipped := res.Skipped()
	if len(skipped) != 1 || skipped[0].Indicator != "경쟁우위 지표" {
		t.Errorf("skipped = %+v", skipped)
	}

	st, err := l.Statuses()
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	matches, _ := st.Lookup.Lookup("a0")
	if len(matches) != 1 || matches[0].MerchantID != "A001" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Input.ThresholdPath = filepath.Join(t.TempDir(), "threshold.xlsx")

	_, err := newLoader(cfg, zerolog.Nop(), nil).Forecast(nil)
	var missing *pipeline.MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingFileError", err)
	}
	if got := missingFileFlag(missing.Role); got != "thresholds" {
		t.Errorf("flag = %q, want thresholds", got)
	}
}

func TestLoaderWatched(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.StatusPath = ""
	if got := newLoader(cfg, zerolog.Nop(), nil).watched(); len(got) != 2 {
		t.Errorf("watched = %v, want the two input sheets", got)
	}
}

func TestWriteForecastJSON(t *testing.T) {
	l := newLoader(fixtureConfig(t), zerolog.Nop(), nil)
	res, err := l.Forecast(nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeForecastJSON(&buf, res, "ko"); err != nil {
		t.Fatal(err)
	}
	var out forecastJSON
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Columns[0] != "모델" || len(out.Rows) != 2 || len(out.Outcomes) != 3 {
		t.Errorf("out = columns %v, %d rows, %d outcomes", out.Columns, len(out.Rows), len(out.Outcomes))
	}

	buf.Reset()
	if err := writeForecastJSON(&buf, &pipeline.Result{Rows: []model.ForecastRow{}}, "en"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"message": "no forecasts available"`) || !strings.Contains(buf.String(), `"rows": []`) {
		t.Errorf("empty result JSON = %s", buf.String())
	}
}

func TestApplyFlags(t *testing.T) {
	if err := rootCmd.ParseFlags([]string{"--kpi", "other.csv", "--months", "3", "--lang", "ko"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, name := range []string{"kpi", "months", "lang"} {
			_ = rootCmd.Flags().Lookup(name).Value.Set(rootCmd.Flags().Lookup(name).DefValue)
			rootCmd.Flags().Lookup(name).Changed = false
		}
	})

	cfg := config.DefaultConfig()
	applyFlags(rootCmd, &cfg)

	if cfg.Input.KPIPath != "other.csv" {
		t.Errorf("kpi = %q", cfg.Input.KPIPath)
	}
	if cfg.Forecast.ForecastMonths != 3 {
		t.Errorf("months = %d", cfg.Forecast.ForecastMonths)
	}
	if cfg.Appearance.Language != "ko" {
		t.Errorf("lang = %q", cfg.Appearance.Language)
	}
	if cfg.Input.ThresholdPath != "threshold.xlsx" {
		t.Errorf("unset flag overrode thresholds: %q", cfg.Input.ThresholdPath)
	}
}

func TestLoadRuntimeFlagsOverrideInvalidFile(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "config.toml",
		"[forecast]\nforecast_months = 500\n\n[appearance]\nlanguage = \"fr\"\n")
	saved := rt
	t.Cleanup(func() {
		if rt.logCloser != nil {
			_ = rt.logCloser.Close()
		}
		rt = saved
		for _, name := range []string{"config", "months", "lang"} {
			f := rootCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	if err := rootCmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	if err := loadRuntime(rootCmd, nil); err == nil {
		t.Fatal("invalid config without overrides should fail validation")
	}

	if err := rootCmd.ParseFlags([]string{"--config", path, "--months", "3", "--lang", "ko"}); err != nil {
		t.Fatal(err)
	}
	if err := loadRuntime(rootCmd, nil); err != nil {
		t.Fatalf("flags should correct the file's invalid values: %v", err)
	}
	if rt.cfg.Forecast.ForecastMonths != 3 || rt.cfg.Appearance.Language != "ko" {
		t.Errorf("cfg = months %d lang %q", rt.cfg.Forecast.ForecastMonths, rt.cfg.Appearance.Language)
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":1", "--detach=true"})
	want := []string{"serve", "--addr", ":1"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPIDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpicastd.pid")
	if err := writePID(path, 4242); err != nil {
		t.Fatal(err)
	}
	pid, err := readPID(path)
	if err != nil || pid != 4242 {
		t.Fatalf("readPID = %d, %v", pid, err)
	}

	if err := os.WriteFile(path, []byte("nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Error("expected error for malformed pid file")
	}

	if err := ensureServeNotRunning(filepath.Join(t.TempDir(), "absent.pid")); err != nil {
		t.Errorf("absent pid file: %v", err)
	}
}
