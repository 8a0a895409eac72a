// Package logging builds the zerolog loggers handed to the wallet services.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultService names loggers created without a service.
const DefaultService = "spvcore"

// New returns a logger tagged with service at the given level. A nil writer
// logs to stderr. When pretty is set the output is the human-readable console
// format, otherwise one JSON object per line.
func New(service, level string, w io.Writer, pretty bool) (zerolog.Logger, error) {
	if service == "" {
		service = DefaultService
	}
	if w == nil {
		w = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if pretty {
		w = console(w, service)
	}

	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger(), nil
}

// ParseLevel maps a config log level to a zerolog level. The empty string
// means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	return lvl, nil
}

func console(w io.Writer, service string) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}

	output.FormatTimestamp = func(i interface{}) string {
		parsed, err := time.Parse(time.RFC3339, fmt.Sprint(i))
		if err != nil {
			return fmt.Sprint(i)
		}
		return parsed.Format("15:04:05")
	}

	output.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("| %-6s|", strings.ToUpper(fmt.Sprint(i)))
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-8s| %s", service, i)
	}

	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	output.FieldsExclude = []string{"service"}
	return output
}
