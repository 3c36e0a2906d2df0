package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"rgbafb/config"
	"rgbafb/convert"
	"rgbafb/state"
)

var colorForms = []string{"rgba(r,g,b,a)", "rgb(r,g,b)", "hsla(h,s%,l%,a)", "hsl(h,s%,l%)", "#rgb", "#rrggbb"}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:         "convert",
		Usage:        "Adds opaque color fallbacks to stylesheet(s)",
		OnUsageError: usageErrorHandler,
		Action:       convert.Run,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "do not reproduce source directory structure under destination"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace stylesheets already present in destination"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "treat non UTF-8 entry names in archives as `ENCODING` (IANA character set name)"},
		},
		ArgsUsage: "SOURCE [DESTINATION]",
		CustomHelpTemplate: cli.CommandHelpTemplate + `
SOURCE:
    what to process, one of:
        "[path_to_file]file.css" - single stylesheet
        "[path_to_directory]directory" - every stylesheet and zip archive under directory, recursively
        "[path_to_archive]archive.zip" - every stylesheet in archive
        "[path_to_archive]archive.zip[path_in_archive]" - stylesheets under path inside archive

    Only files with .css extension are considered, archives inside archives
    are not looked into.

DESTINATION:
    directory to put results to, names are derived from source and
    output.name_template configuration, if absent - current working directory
`,
	}
}

func colorCommand() *cli.Command {
	return &cli.Command{
		Name:         "color",
		Usage:        "Prints opaque fallback for color expression(s)",
		OnUsageError: usageErrorHandler,
		Action:       convert.Color,
		ArgsUsage:    "EXPRESSION [EXPRESSION...]",
		CustomHelpTemplate: fmt.Sprintf(`%s
EXPRESSION:
    %s

    Result of compositing over configured background is printed as "#rrggbb",
    for translucent colors "#aarrggbb" and legacy filter value follow.
`, cli.CommandHelpTemplate, strings.Join(colorForms, ", ")),
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Writes default or active configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "write configuration embedded into the program"},
		},
		OnUsageError: usageErrorHandler,
		Action:       outputConfiguration,
		ArgsUsage:    "[DESTINATION]",
		CustomHelpTemplate: cli.CommandHelpTemplate + `
DESTINATION:
    file to write configuration to, if absent - STDOUT

Active configuration is the embedded defaults with configuration file (if
any) applied on top.
`,
	}
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	var out io.Writer = os.Stdout
	fname := cmd.Args().Get(0)
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() {
			if er := f.Close(); er != nil && err == nil {
				err = er
			}
		}()
		out = f
	} else {
		fname = "STDOUT"
	}
	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
