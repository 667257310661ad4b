package main

import (
	"flag"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"fdmart/internal/config"
	"fdmart/internal/curve"
)

func TestShortcutAssignments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"none", nil, nil},
		{"size", []string{"-width", "80", "-height", "60.5"}, []string{"height=60.5", "width=80"}},
		{"offset", []string{"-offset", "12"}, []string{"offset_x=12", "offset_y=12", "centered=false"}},
		{"pattern", []string{"-pattern", "hilbert"}, []string{"pattern=hilbert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			shortcutFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if got := shortcutAssignments(fs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortcutsReachConfig(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	shortcutFlags(fs)
	if err := fs.Parse([]string{"-width", "80", "-offset", "5", "-pattern", "spiral"}); err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	for _, s := range shortcutAssignments(fs) {
		k, v, err := config.ParseAssignment(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := cfg.Set(k, v, log); err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
	}
	if cfg.Area.Width != 80 || cfg.Area.Height != 100 {
		t.Errorf("area %vx%v, want 80x100", cfg.Area.Width, cfg.Area.Height)
	}
	if cfg.Area.OffsetX != 5 || cfg.Area.OffsetY != 5 || cfg.Area.Centered {
		t.Errorf("placement %+v, want offset 5 and not centred", cfg.Area)
	}
	if cfg.Path.Pattern != curve.KindSpiral {
		t.Errorf("pattern %v, want spiral", cfg.Path.Pattern)
	}
}
