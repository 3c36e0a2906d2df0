package css

import (
	"fmt"
	"strconv"
	"strings"
)

type treeWriter struct {
	sb strings.Builder
}

func (tw *treeWriter) line(depth int, format string, args ...any) {
	tw.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&tw.sb, format, args...)
	tw.sb.WriteByte('\n')
}

func (tw *treeWriter) text(depth int, label, value string) {
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.line(depth, "%s: %s", label, value)
}

// Dump returns a readable tree of the parsed stylesheet. It exists solely
// for inspection during debugging and goes into debug report.
func (s *Stylesheet) Dump() string {
	if s == nil {
		return "<nil Stylesheet>"
	}
	tw := &treeWriter{}
	tw.line(0, "Stylesheet: %d items, %d warnings", len(s.Items), len(s.Warnings))
	dumpItems(tw, s.Items, 1)
	if len(s.Warnings) > 0 {
		tw.line(0, "Warnings:")
		for _, w := range s.Warnings {
			tw.text(1, "Warning", w)
		}
	}
	return tw.sb.String()
}

func dumpItems(tw *treeWriter, items []Item, depth int) {
	for _, item := range items {
		switch {
		case item.Comment != nil:
			tw.text(depth, "Comment", *item.Comment)
		case item.Rule != nil:
			tw.text(depth, "Rule", item.Rule.Selector)
			dumpDeclarations(tw, item.Rule.Declarations, depth+1)
			dumpItems(tw, item.Rule.Items, depth+1)
		case item.Declarations != nil:
			dumpDeclarations(tw, item.Declarations, depth)
		case item.AtRule != nil:
			ar := item.AtRule
			tw.line(depth, "AtRule[%s] block[%t] prelude: %q", ar.Name, ar.Block, ar.Prelude)
			dumpDeclarations(tw, ar.Declarations, depth+1)
			dumpItems(tw, ar.Items, depth+1)
			if ar.Body != "" {
				tw.text(depth+1, "Body", ar.Body)
			}
		}
	}
}

func dumpDeclarations(tw *treeWriter, decls []Declaration, depth int) {
	for _, d := range decls {
		tw.line(depth, "%s = %q", d.Property, d.Value)
	}
}
