// Package sunlog implements Sun's four categorized diagnostic writers,
// grounded on original_source/sun_core/src/utils/log.rs's
// error_output/warn_output/log_output/debug_output: the same `[e]` `[w]`
// `[o]` `[d]` colored prefixes, reimplemented with
// github.com/fatih/color in place of the Rust original's `colorized`
// crate. Unlike the original, these functions never exit the process —
// that decision belongs to the caller (cmd/sun), which exits 1 after
// Error per SPEC_FULL.md's documented exit-code deviation.
package sunlog

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	errorPrefix = color.New(color.FgRed).SprintFunc()
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	infoPrefix  = color.New(color.FgHiYellow).SprintFunc()
	debugPrefix = color.New(color.FgHiBlue).SprintFunc()
)

// Error prints a fatal condition to stderr. The caller decides whether
// and how to terminate.
func Error(err error) {
	fmt.Fprintf(os.Stderr, "%s%s\n", errorPrefix("[e] "), err)
}

// Warn prints a non-fatal condition (divide-by-zero, key-already-exists,
// and similar spec §7 warnings); execution continues.
func Warn(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s\n", warnPrefix("[w] "), msg)
}

// Info prints a general informational message.
func Info(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s\n", infoPrefix("[o] "), msg)
}

// Debug prints v; callers invoke it when a dump flag (`--ct`/`--cp`/
// `--cc`/`--cs`/`--cg`) is set. pretty selects a
// multi-line dump (used for `--cc`/`--cs`/`--cg` bytecode and state
// dumps) over a single compact line.
func Debug(v interface{}, pretty bool) {
	if pretty {
		fmt.Fprintf(os.Stderr, "%s\n%+v\n", debugPrefix("[d] "), v)
		return
	}
	fmt.Fprintf(os.Stderr, "%s%+v\n", debugPrefix("[d] "), v)
}
