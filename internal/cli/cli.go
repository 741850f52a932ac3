// Package cli parses command-line arguments into the options the entrypoint
// needs before the configuration file takes over.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options are the parsed command-line options. Non-empty override fields win
// over the corresponding config file settings.
type Options struct {
	ConfigPath    string
	ManifestsPath string
	LogLevel      string
	LogFormat     string
}

// Parse processes command-line arguments. It returns populated Options, a
// boolean indicating the program should exit cleanly (help requested), or an
// ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("modelbind", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
modelbind - binds chain-synced models to typed game objects.

Usage:
  modelbind [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to the .hcl configuration file.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the configuration file.")
	cFlag := flagSet.String("c", "", "Path to the configuration file (shorthand).")
	manifestsFlag := flagSet.String("manifests-path", "", "Override the model manifests directory.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format override. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Log level override. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "" && logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &Options{
		ConfigPath:    path,
		ManifestsPath: *manifestsFlag,
		LogLevel:      logLevel,
		LogFormat:     logFormat,
	}, false, nil
}
