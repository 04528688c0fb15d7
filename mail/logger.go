package mail

import (
	"fmt"
	"io"
	"os"
)

// defLogger prints [LVL] MAIL lines to out, stdout when nil.
type defLogger struct {
	out io.Writer
}

func (d defLogger) Error(format string, args ...any) { d.printf("ERR", format, args...) }

func (d defLogger) Warn(format string, args ...any) { d.printf("WRN", format, args...) }

func (d defLogger) Info(format string, args ...any) { d.printf("INF", format, args...) }

func (d defLogger) Debug(format string, args ...any) { d.printf("DBG", format, args...) }

func (d defLogger) printf(level, format string, args ...any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "["+level+"] MAIL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
