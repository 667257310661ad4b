package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"fdmart/internal/brightness"
	"fdmart/internal/config"
	"fdmart/internal/server"
	"fdmart/internal/source"
	"fdmart/internal/template"
	"fdmart/internal/toolpath"
)

type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}

// shortcuts maps the direct placement and pattern flags onto config keys.
// An explicit -offset also turns off centring.
var shortcuts = map[string][]string{
	"width":   {"width"},
	"height":  {"height"},
	"offset":  {"offset_x", "offset_y"},
	"pattern": {"pattern"},
}

func shortcutFlags(fs *flag.FlagSet) {
	fs.Float64("width", 100.0, "Target artwork width (mm)")
	fs.Float64("height", 100.0, "Target artwork height (mm)")
	fs.Float64("offset", 0.0, "Offset (mm) of the artwork from the bed corner, applied to both X and Y")
	fs.String("pattern", "zigzag", "Curve pattern: zigzag, diagonal, spiral, square_spiral or hilbert")
}

// shortcutAssignments returns key=value pairs for the shortcut flags given on
// the command line. Flags left at their defaults do not override the config.
func shortcutAssignments(fs *flag.FlagSet) []string {
	var out []string
	fs.Visit(func(f *flag.Flag) {
		for _, key := range shortcuts[f.Name] {
			out = append(out, key+"="+f.Value.String())
		}
		if f.Name == "offset" {
			out = append(out, "centered=false")
		}
	})
	return out
}

func main() {
	inputFile := flag.String("input", "", "Path to the input image (PNG, JPEG, GIF, BMP, TIFF, WebP or SVG)")
	outputFile := flag.String("output", "output.gcode", "Path to output G-code file")
	configFile := flag.String("config", "", "Path to a YAML config file")
	templateFile := flag.String("template", "", "Path to a printer G-code template with ;START_ART and ;END_ART markers")
	shortcutFlags(flag.CommandLine)
	verbose := flag.Bool("v", false, "Log parameter repairs and progress")
	serve := flag.Bool("serve", false, "Serve the HTTP API instead of converting a single file")
	var sets assignments
	flag.Var(&sets, "set", "Override a setting as key=value (repeatable)")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	for _, s := range append(shortcutAssignments(flag.CommandLine), sets...) {
		k, v, err := config.ParseAssignment(s)
		if err != nil {
			log.Fatalf("bad -set %q: %v", s, err)
		}
		if err := cfg.Set(k, v, logger); err != nil {
			log.Fatalf("bad -set %q: %v", s, err)
		}
	}
	if *templateFile != "" {
		cfg.Template = *templateFile
	}

	var tpl *template.Template
	if cfg.Template != "" {
		var err error
		if tpl, err = template.Load(cfg.Template); err != nil {
			log.Fatalf("failed to load template: %v", err)
		}
	}

	if *serve {
		if err := server.New(cfg, tpl, logger).ListenAndServe(); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
		return
	}

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	img, err := source.Load(*inputFile, cfg.Image.MaxPixels)
	if err != nil {
		log.Fatalf("failed to load image: %v", err)
	}
	field, err := brightness.NewField(img)
	if err != nil {
		log.Fatalf("failed to sample image: %v", err)
	}

	res, err := toolpath.NewRunner(logger).Run(cfg.Job(field))
	if err != nil {
		log.Fatalf("failed to generate toolpath: %v", err)
	}

	out, err := res.Render(tpl)
	if err != nil {
		logger.Warn("template merge", "warning", err)
	}

	if err = os.WriteFile(*outputFile, []byte(out), 0644); err != nil {
		log.Fatalf("failed to write output file: %v", err)
	}

	sum := res.Summary
	fmt.Printf("G-code successfully written to %s\n", *outputFile)
	fmt.Printf("  run %s: %d print moves, %d travels, %.1f mm filament (%.1f mm3) in %s\n",
		sum.RunID, sum.Prints, sum.Travels, sum.Extrusion, sum.Volume, sum.Duration.Round(time.Millisecond))
	if sum.Capped {
		fmt.Println("  warning: curve stopped at the iteration cap")
	}
}
