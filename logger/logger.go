package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	blue   = color.New(color.BgBlue).Add(color.FgWhite).Add(color.Bold).SprintFunc()
	cyan   = color.New(color.BgCyan).Add(color.FgWhite).Add(color.Bold).SprintFunc()
	yellow = color.New(color.BgYellow).Add(color.FgBlack).Add(color.Bold).SprintFunc()
	red    = color.New(color.BgRed).Add(color.FgWhite).Add(color.Bold).SprintFunc()
)

// Logger writes leveled, color tagged lines. The zero value logs to stdout
// with debug output disabled.
type Logger struct {
	Out     io.Writer
	Verbose bool
	Prefix  string

	mu *sync.Mutex
}

func New(out io.Writer, verbose bool) *Logger {
	return &Logger{Out: out, Verbose: verbose, mu: new(sync.Mutex)}
}

// With returns a copy of the logger that prefixes every line.
func (logger *Logger) With(prefix string) *Logger {
	if logger == nil {
		return &Logger{Prefix: prefix}
	}
	l := *logger
	if l.Prefix != "" {
		prefix = l.Prefix + " " + prefix
	}
	l.Prefix = prefix
	return &l
}

func (logger *Logger) Info(format string, a ...interface{}) {
	logger.print(blue("INFO"), format, a)
}

func (logger *Logger) Debug(format string, a ...interface{}) {
	if logger == nil || !logger.Verbose {
		return
	}
	logger.print(cyan("DEBUG"), format, a)
}

func (logger *Logger) Warn(format string, a ...interface{}) {
	logger.print(yellow("WARN"), format, a)
}

func (logger *Logger) Error(format string, a ...interface{}) {
	logger.print(red("ERROR"), format, a)
}

// Print writes a line without a level badge.
func (logger *Logger) Print(format string, a ...interface{}) {
	logger.print("", format, a)
}

func (logger *Logger) print(badge, format string, a []interface{}) {
	var out io.Writer = os.Stdout
	str := fmt.Sprintf(format, a...)
	if logger != nil {
		if logger.Out != nil {
			out = logger.Out
		}
		if logger.Prefix != "" {
			str = logger.Prefix + " " + str
		}
		if logger.mu != nil {
			logger.mu.Lock()
			defer logger.mu.Unlock()
		}
	}
	if badge == "" {
		fmt.Fprintln(out, str)
		return
	}
	fmt.Fprintln(out, badge, str)
}
