package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rgbafb/fallback"
	"rgbafb/state"
)

// Color prints opaque fallback for every color expression given on the
// command line. For translucent sources ARGB value and legacy filter are
// printed as well.
func Color(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("color")

	if cmd.Args().Len() == 0 {
		return errors.New("no color expression has been specified")
	}

	var out io.Writer = os.Stdout
	if w := cmd.Root().Writer; w != nil {
		out = w
	}

	var errs error
	for _, expr := range cmd.Args().Slice() {
		conv, err := env.Gen.Color(expr)
		if err != nil {
			log.Warn("Unable to convert color", zap.String("expression", expr), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		log.Debug("Color converted", zap.Stringer("source", conv.Source), zap.Stringer("opaque", conv.Opaque))
		if err := writeConversion(out, expr, conv); err != nil {
			return fmt.Errorf("unable to write result: %w", err)
		}
	}
	return errs
}

func writeConversion(w io.Writer, expr string, conv fallback.Conversion) error {
	if !conv.Translucent() {
		_, err := fmt.Fprintf(w, "%s\t%s\n", expr, conv.Hex())
		return err
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", expr, conv.Hex(), conv.ARGB(), fallback.LegacyFilter(conv.ARGB()))
	return err
}
