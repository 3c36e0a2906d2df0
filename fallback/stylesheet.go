package fallback

import (
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rgbafb/css"
)

// Declaration is a single "property: value" pair of a declaration block.
type Declaration = css.Declaration

// Stats accumulates counters over processed declaration blocks.
type Stats struct {
	Declarations int // looked at
	Converted    int // fallbacks inserted
	Skipped      int // already preceded by fallback
	Filters      int // legacy declarations inserted
	Failed       int // color expressions which could not be parsed
}

// Add merges other into s.
func (s *Stats) Add(other Stats) {
	s.Declarations += other.Declarations
	s.Converted += other.Converted
	s.Skipped += other.Skipped
	s.Filters += other.Filters
	s.Failed += other.Failed
}

// Process converts single declaration block returning new block. For every
// converted declaration legacy filters (if any) and opaque fallback are put
// immediately before the original one, which is kept. Declaration immediately
// preceded by a declaration of the same property is considered to be already
// processed and left alone. Returned error joins all color parsing errors,
// block is always usable.
func (g *Generator) Process(decls []Declaration) ([]Declaration, Stats, error) {
	var (
		stats Stats
		errs  error
	)

	out := make([]Declaration, 0, len(decls))
	for i, d := range decls {
		stats.Declarations++

		if !g.Eligible(d.Property, d.Value) {
			out = append(out, d)
			continue
		}
		if i > 0 && strings.EqualFold(decls[i-1].Property, d.Property) {
			g.log.Debug("Fallback already present, skipping", zap.String("property", d.Property), zap.String("value", d.Value))
			stats.Skipped++
			out = append(out, d)
			continue
		}

		res, changed, err := g.Convert(d.Property, d.Value)
		if err != nil {
			stats.Failed += len(multierr.Errors(err))
			errs = multierr.Append(errs, err)
		}
		if !changed {
			out = append(out, d)
			continue
		}

		out = append(out, res.Filters...)
		out = append(out, res.Fallback, d)
		stats.Converted++
		stats.Filters += len(res.Filters)
	}
	return out, stats, errs
}

// ProcessStylesheet processes every declaration block of the stylesheet in
// place. Errors never stop the walk.
func (g *Generator) ProcessStylesheet(sheet *css.Stylesheet) (Stats, error) {
	var (
		total Stats
		errs  error
	)
	sheet.WalkDeclarations(func(decls []Declaration) []Declaration {
		out, stats, err := g.Process(decls)
		total.Add(stats)
		errs = multierr.Append(errs, err)
		return out
	})
	return total, errs
}
