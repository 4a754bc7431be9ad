package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	for _, id := range []string{"match3", "match3_mini"} {
		t.Run(id, func(t *testing.T) {
			got, err := Load(id, "")
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			want, _ := Default(id)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("embedded YAML = %+v\nhardcoded = %+v", got, want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("default config invalid: %v", err)
			}
		})
	}
}

func TestLoadUnknownGame(t *testing.T) {
	if _, err := Load("tetris", ""); err == nil {
		t.Error("Load() of unknown game should fail")
	}
}

func TestLoadCustomPathOverridesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := "board:\n  rows: 5\n  cols: 7\nscoring:\n  goal: 40\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("match3", path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Board.Rows != 5 || cfg.Board.Cols != 7 {
		t.Errorf("board = %+v, want 5x7", cfg.Board)
	}
	if cfg.Scoring.Goal != 40 {
		t.Errorf("goal = %d, want 40", cfg.Scoring.Goal)
	}
	// Untouched keys keep their defaults.
	if cfg.Scoring.PointsPerMatch != 10 {
		t.Errorf("points_per_match = %d, want 10", cfg.Scoring.PointsPerMatch)
	}
	if len(cfg.Palette) != 6 {
		t.Errorf("palette = %v, want the 6 default colors", cfg.Palette)
	}
}

func TestLoadCustomPathErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load("match3", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing custom file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("board: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("match3", bad); err == nil {
		t.Error("malformed custom file should fail")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("scoring:\n  goal: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("match3", invalid); err == nil || !strings.Contains(err.Error(), "goal") {
		t.Errorf("zero goal error = %v, want a goal error", err)
	}
}

func TestLoadUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".arcade", "configs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := "palette: [red, blue, green]\n"
	if err := os.WriteFile(filepath.Join(dir, "match3_mini.yaml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("match3_mini", "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := []string{"red", "blue", "green"}; !reflect.DeepEqual(cfg.Palette, want) {
		t.Errorf("palette = %v, want %v", cfg.Palette, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Match3Config)
		want   string
	}{
		{"zero rows", func(c *Match3Config) { c.Board.Rows = 0 }, "board"},
		{"empty palette", func(c *Match3Config) { c.Palette = nil }, "palette is empty"},
		{"one color on a full board", func(c *Match3Config) { c.Palette = []string{"red"} }, "at least 2 colors"},
		{"one color on a tall strip", func(c *Match3Config) {
			c.Palette = []string{"red"}
			c.Board.Rows, c.Board.Cols = 3, 1
		}, "at least 2 colors"},
		{"huge palette", func(c *Match3Config) { c.Palette = make([]string, MaxPalette+1) }, "max"},
		{"negative goal", func(c *Match3Config) { c.Scoring.Goal = -5 }, "goal"},
		{"zero points", func(c *Match3Config) { c.Scoring.PointsPerMatch = 0 }, "points_per_match"},
		{"negative fall", func(c *Match3Config) { c.Animation.FallMs = -1 }, "fall_ms"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultMatch3Config()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestValidateOneColorOnTinyBoard(t *testing.T) {
	cfg := DefaultMatch3Config()
	cfg.Palette = []string{"red"}
	cfg.Board.Rows, cfg.Board.Cols = 2, 2
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for a board that cannot match", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultMatch3Config()
	if got := cfg.Animation.Swap(); got != 200*time.Millisecond {
		t.Errorf("Swap() = %v", got)
	}
	if got := cfg.Animation.FallRowBias(); got != 300*time.Millisecond {
		t.Errorf("FallRowBias() = %v", got)
	}
	if got := cfg.SettleTimeout(); got != 5*time.Second {
		t.Errorf("SettleTimeout() = %v", got)
	}
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    DifficultyPreset
		wantErr bool
	}{
		{"", DifficultyNormal, false},
		{"easy", DifficultyEasy, false},
		{"hard", DifficultyHard, false},
		{"nightmare", "", true},
	}
	for _, tc := range tests {
		got, err := ParsePreset(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParsePreset(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestApplyPreset(t *testing.T) {
	normal := DefaultMatch3Config()
	ApplyPreset(&normal, DifficultyNormal)
	if !reflect.DeepEqual(normal, DefaultMatch3Config()) {
		t.Error("normal preset should not change the config")
	}

	easy := DefaultMatch3Config()
	ApplyPreset(&easy, DifficultyEasy)
	if easy.Scoring.Goal != 50 || len(easy.Palette) != 5 {
		t.Errorf("easy: goal %d, %d colors; want 50, 5", easy.Scoring.Goal, len(easy.Palette))
	}

	base := DefaultMatch3Config()
	hard := DefaultMatch3Config()
	ApplyPreset(&hard, DifficultyHard)
	if hard.Scoring.Goal != 200 || len(hard.Palette) != 7 {
		t.Errorf("hard: goal %d, %d colors; want 200, 7", hard.Scoring.Goal, len(hard.Palette))
	}
	if hard.Palette[6] != "orange" {
		t.Errorf("hard extra color = %q, want orange", hard.Palette[6])
	}
	if len(base.Palette) != 6 {
		t.Error("ApplyPreset must not alias the caller's default palette")
	}

	// The mini board never drops below four colors.
	mini := DefaultMiniConfig()
	ApplyPreset(&mini, DifficultyEasy)
	if len(mini.Palette) != 4 {
		t.Errorf("easy mini palette = %d colors, want 4", len(mini.Palette))
	}
}
