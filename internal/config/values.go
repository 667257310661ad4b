package config

import (
	"encoding"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

type fields struct {
	floats map[string]*float64
	ints   map[string]*int
	bools  map[string]*bool
	texts  map[string]encoding.TextUnmarshaler
}

func (c *Config) fields() fields {
	return fields{
		floats: map[string]*float64{
			"width":              &c.Area.Width,
			"height":             &c.Area.Height,
			"offset_x":           &c.Area.OffsetX,
			"offset_y":           &c.Area.OffsetY,
			"bed_width":          &c.Area.BedWidth,
			"bed_height":         &c.Area.BedHeight,
			"spacing":            &c.Path.Spacing,
			"min_width":          &c.Path.MinWidth,
			"max_width":          &c.Path.MaxWidth,
			"min_speed":          &c.Path.MinSpeed,
			"max_speed":          &c.Path.MaxSpeed,
			"gamma":              &c.Path.Gamma,
			"squiggle_amplitude": &c.Path.SquiggleAmplitude,
			"squiggle_frequency": &c.Path.SquiggleFrequency,
			"text_threshold":     &c.Path.TextThreshold,
			"filament_diameter":  &c.Material.FilamentDiameter,
			"layer_height":       &c.Material.LayerHeight,
			"z_offset":           &c.Material.ZOffset,
			"base_margin":        &c.Base.Margin,
			"base_speed":         &c.Base.Speed,
			"zoom":               &c.View.Zoom,
			"pan_x":              &c.View.PanX,
			"pan_y":              &c.View.PanY,
		},
		ints: map[string]*int{
			"curve_order":    &c.Path.CurveOrder,
			"max_iterations": &c.Path.MaxIterations,
			"base_layers":    &c.Base.Layers,
			"base_slot":      &c.Change.BaseSlot,
			"draw_slot":      &c.Change.DrawSlot,
			"max_px":         &c.Image.MaxPixels,
		},
		bools: map[string]*bool{
			"centered":  &c.Area.Centered,
			"text_mode": &c.Path.TextMode,
			"base":      &c.Base.Enabled,
			"mirror":    &c.View.Mirror,
		},
		texts: map[string]encoding.TextUnmarshaler{
			"pattern":     &c.Path.Pattern,
			"origin":      &c.Area.Origin,
			"change_mode": &c.Change.Mode,
		},
	}
}

// Keys lists the names accepted by Set.
func Keys() []string {
	f := DefaultConfig().fields()
	var keys []string
	for k := range f.floats {
		keys = append(keys, k)
	}
	for k := range f.ints {
		keys = append(keys, k)
	}
	for k := range f.bools {
		keys = append(keys, k)
	}
	for k := range f.texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting from its text form. A value that does not parse
// as a number or boolean is replaced by the key's default and logged; only
// unknown keys and bad enum names are errors.
func (c *Config) Set(key, value string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	f := c.fields()
	def := DefaultConfig().fields()

	if p, ok := f.floats[key]; ok {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.Warn("unparseable number, using default", "param", key, "value", value, "default", *def.floats[key])
			v = *def.floats[key]
		}
		*p = v
		return nil
	}
	if p, ok := f.ints[key]; ok {
		v, err := strconv.Atoi(value)
		if err != nil {
			fv, ferr := strconv.ParseFloat(value, 64)
			if ferr == nil && fv == float64(int(fv)) {
				v = int(fv)
			} else {
				log.Warn("unparseable integer, using default", "param", key, "value", value, "default", *def.ints[key])
				v = *def.ints[key]
			}
		}
		*p = v
		return nil
	}
	if p, ok := f.bools[key]; ok {
		v, err := strconv.ParseBool(value)
		if err != nil {
			switch strings.ToLower(value) {
			case "on", "yes":
				v = true
			case "off", "no", "":
				v = false
			default:
				log.Warn("unparseable flag, using default", "param", key, "value", value, "default", *def.bools[key])
				v = *def.bools[key]
			}
		}
		*p = v
		return nil
	}
	if p, ok := f.texts[key]; ok {
		return p.UnmarshalText([]byte(value))
	}
	return fmt.Errorf("unknown setting %q", key)
}

// SetAll applies key=value assignments in order.
func (c *Config) SetAll(values map[string]string, log *slog.Logger) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, values[k], log); err != nil {
			return err
		}
	}
	return nil
}

// ParseAssignment splits "key=value".
func ParseAssignment(s string) (key, value string, err error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return k, v, nil
}
