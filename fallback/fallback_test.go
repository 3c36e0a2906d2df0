package fallback

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"rgbafb/color"
	"rgbafb/css"
)

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	return New(opts, zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))))
}

func withOldIE(props ...string) Options {
	opts := DefaultOptions()
	opts.OldIE = props
	return opts
}

func TestGenerator_Eligible(t *testing.T) {
	g := newTestGenerator(t, DefaultOptions())

	tests := []struct {
		prop, value string
		want        bool
	}{
		{"color", "rgba(0,0,0,.5)", true},
		{"background", "url(x.png) rgba(0,0,0,.5)", true},
		{"border-color", "HSLA(0,0%,0%,.5)", true},
		{"COLOR", "rgba(0,0,0,.5)", true},
		{"padding", "rgba(0,0,0,.5)", false},
		{"color", "#fff", false},
		{"color", "rgb(0,0,0)", false},
		{"color", "", false},
	}

	for _, tt := range tests {
		if got := g.Eligible(tt.prop, tt.value); got != tt.want {
			t.Errorf("Eligible(%q, %q) = %v, want %v", tt.prop, tt.value, got, tt.want)
		}
	}
}

func TestGenerator_Eligible_CustomProperties(t *testing.T) {
	g := newTestGenerator(t, Options{Properties: []string{"fill", " Stroke "}})

	if !g.Eligible("fill", "rgba(0,0,0,.5)") {
		t.Error("expected fill to be eligible")
	}
	if !g.Eligible("stroke", "rgba(0,0,0,.5)") {
		t.Error("expected stroke to be eligible, names are normalized")
	}
	if g.Eligible("color", "rgba(0,0,0,.5)") {
		t.Error("color is not on the list")
	}
}

func TestGenerator_Color(t *testing.T) {
	g := newTestGenerator(t, DefaultOptions())

	conv, err := g.Color("rgba(0,0,0,0.4)")
	if err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if got := conv.Hex(); got != "#999999" {
		t.Errorf("Hex() = %q, want #999999", got)
	}
	if got := conv.ARGB(); got != "#66999999" {
		t.Errorf("ARGB() = %q, want #66999999", got)
	}
	if !conv.Translucent() {
		t.Error("expected translucent conversion")
	}

	if _, err := g.Color("rgba(x,y,z)"); !errors.Is(err, color.ErrMalformed) {
		t.Errorf("Color(rgba(x,y,z)) error = %v, want ErrMalformed", err)
	}
}

func TestGenerator_Color_Background(t *testing.T) {
	g := newTestGenerator(t, Options{Properties: DefaultProperties, BackgroundColor: "#000"})

	conv, err := g.Color("rgba(255,255,255,0.5)")
	if err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if got := conv.Hex(); got != "#7f7f7f" {
		t.Errorf("Hex() = %q, want #7f7f7f", got)
	}

	bad := newTestGenerator(t, Options{Properties: DefaultProperties, BackgroundColor: "blue"})
	if _, err := bad.Color("rgba(0,0,0,.5)"); err == nil {
		t.Error("expected error for unparsable background")
	}
}

func TestGenerator_Convert(t *testing.T) {
	tests := []struct {
		name    string
		prop    string
		value   string
		want    string
		changed bool
		wantErr bool
	}{
		{"rgba over white", "color", "rgba(255,0,0,0.5)", "#ff7f7f", true, false},
		{"hsla", "color", "hsla(0,100%,50%,0.5)", "#ff7f7f", true, false},
		{"upper case function", "color", "RGBA(255,0,0,0.5)", "#ff7f7f", true, false},
		{"spaces inside", "color", "rgba( 255 , 0 , 0 , 0.5 )", "#ff7f7f", true, false},
		{"important", "color", "rgba(255,0,0,0.5) !important", "#ff7f7f !important", true, false},
		{"shorthand", "border", "1px solid rgba(0,0,0,0.4)", "1px solid #999999", true, false},
		{
			"several functions", "background",
			"linear-gradient(rgba(0,0,0,0.5), rgba(255,255,255,0.5))",
			"linear-gradient(#7f7f7f, #ffffff)", true, false,
		},
		{"zero alpha is opaque", "color", "rgba(0,0,0,0)", "#000000", true, false},
		{"malformed", "color", "rgba(x,y,z)", "", false, true},
		{"one of two malformed", "background", "rgba(x,y,z) rgba(0,0,0,0.5)", "rgba(x,y,z) #7f7f7f", true, true},
		{"nothing to convert", "color", "rgb(1,2,3)", "", false, false},
	}

	g := newTestGenerator(t, DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, changed, err := g.Convert(tt.prop, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Convert() error = %v, wantErr %v", err, tt.wantErr)
			}
			if changed != tt.changed {
				t.Fatalf("Convert() changed = %v, want %v", changed, tt.changed)
			}
			if !changed {
				return
			}
			if res.Fallback.Property != tt.prop {
				t.Errorf("Fallback.Property = %q, want %q", res.Fallback.Property, tt.prop)
			}
			if res.Fallback.Value != tt.want {
				t.Errorf("Fallback.Value = %q, want %q", res.Fallback.Value, tt.want)
			}
			if len(res.Filters) != 0 {
				t.Errorf("Filters = %v, want none", res.Filters)
			}
		})
	}
}

func TestGenerator_Convert_Legacy(t *testing.T) {
	g := newTestGenerator(t, withOldIE(DefaultOldIEProperties...))

	res, changed, err := g.Convert("background-color", "rgba(0,0,0,0.4)")
	if err != nil || !changed {
		t.Fatalf("Convert() = %v, %v", changed, err)
	}

	filter := "progid:DXImageTransform.Microsoft.gradient(startColorStr=#66999999,endColorStr=#66999999)"
	want := []Declaration{
		{Property: "-ms-filter", Value: `"` + filter + `"`},
		{Property: "filter", Value: filter},
	}
	if !slices.Equal(res.Filters, want) {
		t.Errorf("Filters = %v, want %v", res.Filters, want)
	}
	if res.Fallback.Value != "#999999" {
		t.Errorf("Fallback.Value = %q, want #999999", res.Fallback.Value)
	}

	t.Run("not legacy eligible", func(t *testing.T) {
		res, _, _ := g.Convert("color", "rgba(0,0,0,0.4)")
		if len(res.Filters) != 0 {
			t.Errorf("Filters = %v, want none", res.Filters)
		}
	})

	t.Run("opaque result", func(t *testing.T) {
		res, changed, _ := g.Convert("background", "rgba(0,0,0,0)")
		if !changed {
			t.Fatal("expected fallback")
		}
		if len(res.Filters) != 0 {
			t.Errorf("Filters = %v, want none for alpha 1", res.Filters)
		}
	})

	t.Run("first function alpha wins", func(t *testing.T) {
		res, _, _ := g.Convert("background", "rgba(0,0,0,0.4) rgba(0,0,0,0.5)")
		if len(res.Filters) != 2 || res.Filters[1].Value != filter {
			t.Errorf("Filters = %v", res.Filters)
		}
	})
}

func TestLegacyFilter(t *testing.T) {
	want := "progid:DXImageTransform.Microsoft.gradient(startColorStr=#80ff0000,endColorStr=#80ff0000)"
	if got := LegacyFilter("#80ff0000"); got != want {
		t.Errorf("LegacyFilter() = %q, want %q", got, want)
	}
}

func TestGenerator_Process(t *testing.T) {
	t.Run("fallback goes before original", func(t *testing.T) {
		g := newTestGenerator(t, DefaultOptions())
		in := []Declaration{
			{Property: "margin", Value: "0"},
			{Property: "color", Value: "rgba(255,0,0,0.5)"},
		}
		out, stats, err := g.Process(in)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		want := []Declaration{
			{Property: "margin", Value: "0"},
			{Property: "color", Value: "#ff7f7f"},
			{Property: "color", Value: "rgba(255,0,0,0.5)"},
		}
		if !slices.Equal(out, want) {
			t.Errorf("Process() = %v, want %v", out, want)
		}
		if stats != (Stats{Declarations: 2, Converted: 1}) {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("legacy filters go first", func(t *testing.T) {
		g := newTestGenerator(t, withOldIE(DefaultOldIEProperties...))
		out, stats, err := g.Process([]Declaration{{Property: "background-color", Value: "rgba(0,0,0,0.4)"}})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		props := make([]string, 0, len(out))
		for _, d := range out {
			props = append(props, d.Property)
		}
		if want := []string{"-ms-filter", "filter", "background-color", "background-color"}; !slices.Equal(props, want) {
			t.Errorf("properties = %v, want %v", props, want)
		}
		if out[3].Value != "rgba(0,0,0,0.4)" {
			t.Errorf("original = %q", out[3].Value)
		}
		if stats.Filters != 2 || stats.Converted != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("malformed left untouched", func(t *testing.T) {
		g := newTestGenerator(t, DefaultOptions())
		in := []Declaration{
			{Property: "color", Value: "rgba(x,y,z)"},
			{Property: "background", Value: "rgba(0,0,0,0.5)"},
		}
		out, stats, err := g.Process(in)
		if err == nil {
			t.Fatal("expected error")
		}
		var pe *color.ParseError
		if !errors.As(err, &pe) || pe.Input != "rgba(x,y,z)" {
			t.Errorf("error = %v, want ParseError for rgba(x,y,z)", err)
		}
		if len(out) != 3 || out[0] != in[0] {
			t.Errorf("Process() = %v", out)
		}
		if stats.Failed != 1 || stats.Converted != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("previous declaration of same property", func(t *testing.T) {
		g := newTestGenerator(t, DefaultOptions())
		in := []Declaration{
			{Property: "color", Value: "red"},
			{Property: "color", Value: "rgba(255,0,0,0.5)"},
		}
		out, stats, err := g.Process(in)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !slices.Equal(out, in) {
			t.Errorf("Process() = %v, want unchanged", out)
		}
		if stats.Skipped != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestGenerator_Process_Idempotent(t *testing.T) {
	for _, opts := range []Options{DefaultOptions(), withOldIE(DefaultOldIEProperties...), withOldIE("color")} {
		g := newTestGenerator(t, opts)
		in := []Declaration{
			{Property: "background", Value: "rgba(0,0,0,0.4)"},
			{Property: "color", Value: "hsla(120,100%,25%,0.7)"},
			{Property: "border", Value: "1px solid rgba(10,20,30,0.2)"},
		}
		first, _, err := g.Process(in)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		second, stats, err := g.Process(first)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !slices.Equal(first, second) {
			t.Errorf("second pass changed block:\n%v\n%v", first, second)
		}
		if stats.Converted != 0 || stats.Skipped != 3 {
			t.Errorf("second pass stats = %+v", stats)
		}
	}
}

func TestGenerator_ProcessStylesheet(t *testing.T) {
	src := `a { color: rgba(255,0,0,0.5); }
@media print { .x { background: rgba(0,0,0,0.4) } }
@font-face { font-family: x; color: rgba(x,y,z) }
`
	sheet := css.NewParser(zap.NewNop()).Parse([]byte(src))
	g := newTestGenerator(t, DefaultOptions())

	stats, err := g.ProcessStylesheet(sheet)
	if len(multierr.Errors(err)) != 1 {
		t.Errorf("ProcessStylesheet() error = %v, want single error", err)
	}
	if stats.Converted != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var blocks [][]Declaration
	sheet.WalkDeclarations(func(decls []Declaration) []Declaration {
		blocks = append(blocks, decls)
		return decls
	})
	if len(blocks) != 3 {
		t.Fatalf("got %d declaration blocks, want 3", len(blocks))
	}
	if blocks[0][0].Value != "#ff7f7f" || len(blocks[0]) != 2 {
		t.Errorf("rule block = %v", blocks[0])
	}
	if blocks[1][0].Value != "#999999" || len(blocks[1]) != 2 {
		t.Errorf("nested rule block = %v", blocks[1])
	}
	if len(blocks[2]) != 2 {
		t.Errorf("@font-face block = %v, want unchanged", blocks[2])
	}
}

func TestGenerator_ProcessStylesheet_NestedRules(t *testing.T) {
	src := `.card { color: black; .title { color: rgba(255, 0, 0, .5); } background: rgba(0,0,0,.5); margin: 0; }`
	sheet := css.NewParser(zap.NewNop()).Parse([]byte(src))
	g := newTestGenerator(t, DefaultOptions())

	stats, err := g.ProcessStylesheet(sheet)
	if err != nil {
		t.Fatalf("ProcessStylesheet() error = %v", err)
	}
	if stats.Converted != 2 {
		t.Errorf("stats = %+v", stats)
	}

	want := `.card {
  color: black;

  .title {
    color: #ff7f7f;
    color: rgba(255, 0, 0, .5);
  }

  background: #7f7f7f;
  background: rgba(0,0,0,.5);
  margin: 0;
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerator_ConcurrentUse(t *testing.T) {
	g := New(withOldIE(DefaultOldIEProperties...), zap.NewNop())
	in := []Declaration{
		{Property: "background", Value: "rgba(0, 0, 0, .5)"},
		{Property: "color", Value: "hsla(120,100%,25%,0.7) !important"},
		{Property: "border", Value: "1px solid rgba(x,y,z)"},
		{Property: "margin", Value: "0"},
	}
	want, wantStats, wantErr := g.Process(in)
	if wantErr == nil {
		t.Fatal("Process() expected error for malformed color")
	}

	// parent returns only after all parallel subtests are done
	t.Run("workers", func(t *testing.T) {
		for i := range 8 {
			t.Run(fmt.Sprintf("worker %d", i), func(t *testing.T) {
				t.Parallel()
				for range 100 {
					got, stats, err := g.Process(in)
					if !slices.Equal(got, want) || stats != wantStats {
						t.Fatalf("Process() = %v %+v, want %v %+v", got, stats, want, wantStats)
					}
					if err == nil || err.Error() != wantErr.Error() {
						t.Fatalf("Process() error = %v, want %v", err, wantErr)
					}
					conv, err := g.Color("rgba(255,0,0,.5)")
					if err != nil || conv.Hex() != "#ff7f7f" {
						t.Fatalf("Color() = %v, %v", conv.Hex(), err)
					}
				}
			})
		}
	})
}
