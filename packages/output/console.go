package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	case map[string][]string:
		return fmt.Sprintf("{headers with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatOutcome(o *Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	symbol := green("✓")
	if !o.Passed() {
		symbol = red("✗")
	}

	status := fmt.Sprintf("%d %s", o.StatusCode, http.StatusText(o.StatusCode))
	fmt.Fprintf(f.writer, "\n%s %s %s %s %s\n", symbol, bold(o.Method), o.URL, status, cyan(fmt.Sprintf("(%dms)", o.Duration.Milliseconds())))

	if o.DecodedBy != "" {
		fmt.Fprintf(f.writer, "  Decoded by: %s\n", o.DecodedBy)
	}

	if f.verbose {
		if o.ContentType != "" {
			fmt.Fprintf(f.writer, "  Content-Type: %s\n", o.ContentType)
		}
		names := make([]string, 0, len(o.Headers))
		for name := range o.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, value := range o.Headers[name] {
				fmt.Fprintf(f.writer, "  %s: %s\n", name, value)
			}
		}
	}

	if o.Error != nil {
		fmt.Fprintf(f.writer, "  %s %s\n", red("Error:"), o.Error.String())
	}

	if len(o.Body) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", prettyBody(o.Body))
	}

	if len(o.Assertions) > 0 {
		fmt.Fprintf(f.writer, "\n")
		for _, a := range o.Assertions {
			if a.Passed {
				fmt.Fprintf(f.writer, "  %s %s %s %s\n", green("✓"), a.Subject, a.Operator, formatValue(a.Expected, 100))
				continue
			}
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("→"), a.Subject, a.Operator)
			fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
			if a.Message != "" {
				fmt.Fprintf(f.writer, "      %s\n", a.Message)
			}
		}
	}

	if f.verbose && len(o.Captures) > 0 {
		fmt.Fprintf(f.writer, "  Captures:\n")
		names := make([]string, 0, len(o.Captures))
		for name := range o.Captures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "    %s = %v\n", name, o.Captures[name])
		}
	}

	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("apiharness"), version)
}

// prettyBody indents JSON bodies and returns anything else unchanged.
func prettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
