package recipe

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// timestampLayout is the generation_time format: ISO 8601, UTC, whole seconds.
const timestampLayout = "2006-01-02T15:04:05Z"

// EncodeOptions carries the optional parts of a recipe document.
type EncodeOptions struct {
	// Comment is free text emitted inside the BEGIN_COMMENT block.
	Comment string

	// SourceAnnotation is the text of the generating script, included
	// verbatim in the comment block after the free-text comment.
	SourceAnnotation string

	// Now supplies the generation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Encode renders the log as a recipe document and writes it to w.
//
// The document is a 1:1 projection of the log in append order: a header
// with the generation timestamp, operation count and total wait duration,
// the optional comment block, the TESTSET: marker, then one line per
// operation. Encode never mutates the log; calling it twice on the same
// unmodified log produces identical output except for the timestamp line.
//
// Operation lines always have the form "<Kind> <arg0>, <arg1>, ...;".
// Operations without arguments keep the space before the semicolon
// ("RecordStop ;"); this is the canonical form the tester software accepts.
func Encode(w io.Writer, log *Log, opts EncodeOptions) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# generation_time = %q\n", now().UTC().Format(timestampLayout))
	fmt.Fprintf(&buf, "# num_of_operations = %d\n", log.Len())
	fmt.Fprintf(&buf, "# wait_duration_sec = %s\n", formatNumber(log.WaitSeconds()))
	buf.WriteByte('\n')

	if comment := commentBody(opts); comment != "" {
		buf.WriteString("# BEGIN_COMMENT\n")
		buf.WriteString(comment)
		if !strings.HasSuffix(comment, "\n") {
			buf.WriteByte('\n')
		}
		buf.WriteString("# END_COMMENT\n\n")
	}

	buf.WriteString("TESTSET:\n")
	for _, op := range log.ops {
		args := make([]string, len(op.Args))
		for i, a := range op.Args {
			args[i] = formatArg(a)
		}
		fmt.Fprintf(&buf, "%s %s;\n", op.Kind, strings.Join(args, ", "))
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write recipe: %w", err)
	}
	return nil
}

// commentBody merges the free-text comment and the verbatim source
// annotation into the content of the single comment block. A blank line
// separates the two when both are present.
func commentBody(opts EncodeOptions) string {
	switch {
	case opts.Comment != "" && opts.SourceAnnotation != "":
		c := opts.Comment
		if !strings.HasSuffix(c, "\n") {
			c += "\n"
		}
		return c + "\n" + opts.SourceAnnotation
	case opts.Comment != "":
		return opts.Comment
	default:
		return opts.SourceAnnotation
	}
}

// formatArg renders one operation argument the way the tester software
// expects it: strings verbatim (ON/OFF tokens included), numbers in their
// shortest round-trippable decimal form.
func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
