// Copyright 2024 The AluVM Authors
// This file is part of the AluVM library.
//
// The AluVM library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The AluVM library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the AluVM library. If not, see <http://www.gnu.org/licenses/>.

// Package colorlog is the leveled, colorized logger used by the command
// line tools (aluvm-stl, aluvm-dis) and, when one is attached with
// Vm.SetLogger, by pkg/vm's outer driver loop. Lib.Exec's inner dispatch
// loop and the instructions themselves never log.
package colorlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// Level orders log severities from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgHiRed, color.Bold),
}

var levelName = map[Level]string{
	LevelDebug: "DEBG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "EROR",
	LevelCrit:  "CRIT",
}

// Logger writes leveled, colorized lines to an underlying writer. The zero
// value is not usable; construct with New or NewStdout.
type Logger struct {
	out   io.Writer
	min   Level
	now   func() time.Time
	color bool
}

// New builds a Logger writing to out at minimum severity min. Color
// sequences are emitted only if colorize is true; callers writing to a file
// rather than a terminal should pass false.
func New(out io.Writer, min Level, colorize bool) *Logger {
	return &Logger{out: out, min: min, now: time.Now, color: colorize}
}

// NewStdout builds a Logger over a colorable stdout wrapper, so ANSI
// sequences render correctly on every supported platform, colorizing only
// when stdout is a terminal.
func NewStdout(min Level) *Logger {
	stat, err := os.Stdout.Stat()
	isTerminal := err == nil && (stat.Mode()&os.ModeCharDevice) != 0
	return New(colorable.NewColorableStdout(), min, isTerminal)
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if level < l.min {
		return
	}
	ts := l.now().Format("2006-01-02T15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", ts, levelName[level], msg)
	for i := 0; i+1 < len(kv); i += 2 {
		line += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	if l.color {
		line = levelColor[level].Sprint(line)
	}
	fmt.Fprintln(l.out, line)
}

// Debug logs at LevelDebug. kv is an alternating key/value list appended
// to the message.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, kv ...interface{}) { l.log(LevelInfo, msg, kv...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.log(LevelWarn, msg, kv...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv...) }

// Crit logs at LevelCrit. It does not itself terminate the process;
// callers that want to exit on a critical log do so explicitly.
func (l *Logger) Crit(msg string, kv ...interface{}) { l.log(LevelCrit, msg, kv...) }
