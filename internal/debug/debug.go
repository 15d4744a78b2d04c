// Package debug implements the IRIS_DEBUG* environment-variable trace
// contract: a lazily-initialized, process-wide bitmask of sections, each
// independently enabled, gating structured log events emitted through
// zerolog. Grounded on the original library's iris-debug.c/iris-debug.h.
package debug

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Section identifies one independently-toggled trace area.
type Section uint32

const (
	SectionMessage Section = 1 << iota
	SectionPort
	SectionReceiver
	SectionArbiter
	SectionScheduler
	SectionThread
	SectionTask
	SectionQueue
	SectionStack
	SectionRRobin
)

var sectionEnvVar = map[Section]string{
	SectionMessage:   "IRIS_DEBUG_MESSAGE",
	SectionPort:      "IRIS_DEBUG_PORT",
	SectionReceiver:  "IRIS_DEBUG_RECEIVER",
	SectionArbiter:   "IRIS_DEBUG_ARBITER",
	SectionScheduler: "IRIS_DEBUG_SCHEDULER",
	SectionThread:    "IRIS_DEBUG_THREAD",
	SectionTask:      "IRIS_DEBUG_TASK",
	SectionQueue:     "IRIS_DEBUG_QUEUE",
	SectionStack:     "IRIS_DEBUG_STACK",
	SectionRRobin:    "IRIS_DEBUG_RROBIN",
}

var (
	once    sync.Once
	mask    Section
	logger  zerolog.Logger
)

func initMask() {
	if truthy(os.Getenv("IRIS_DEBUG")) {
		for s := range sectionEnvVar {
			mask |= s
		}
	}
	for s, env := range sectionEnvVar {
		if truthy(os.Getenv(env)) {
			mask |= s
		}
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()
}

func truthy(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "0" && !strings.EqualFold(v, "false")
}

// Enabled reports whether the given section is currently traced.
func Enabled(s Section) bool {
	once.Do(initMask)
	return mask&s != 0
}

// Logf emits a trace line for the given section if it is enabled. The
// format/args pair is only evaluated as a string when tracing is on.
func Logf(s Section, format string, args ...any) {
	once.Do(initMask)
	if mask&s == 0 {
		return
	}
	logger.Trace().Msgf(format, args...)
}

// Log returns a zerolog.Event for the section, or a disabled event if the
// section is off, so callers can build structured fields without an
// Enabled() branch: debug.Log(debug.SectionArbiter).Str("state", s).Send()
func Log(s Section) *zerolog.Event {
	once.Do(initMask)
	if mask&s == 0 {
		return zerolog.Nop().Trace()
	}
	return logger.Trace()
}

// Reset is a test-only hook letting section tests reinitialize the mask
// after mutating environment variables.
func Reset() {
	once = sync.Once{}
	mask = 0
}
