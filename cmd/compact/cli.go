package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

type cliOptions struct {
	Input      string
	Output     string
	ConfigPath string
	EnvFile    string
	SessionID  string
	WorkDir    string
	StoreDir   string
	HTMLPath   string
	LogLevel   string
	Watch      bool
	Debounce   time.Duration
}

func parseCLIArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	var out bytes.Buffer
	fs.SetOutput(&out)

	fs.StringVar(&opts.Input, "in", "", "Transcript JSON file (a doublestar pattern with -watch).")
	fs.StringVar(&opts.Output, "out", "", "Where to write the resulting transcript; \"-\" for stdout. Default: overwrite -in.")
	fs.StringVar(&opts.ConfigPath, "config", "", "Optional YAML config file.")
	fs.StringVar(&opts.EnvFile, "env-file", "", "Dotenv file to read instead of ./.env.")
	fs.StringVar(&opts.SessionID, "session", "", "Session id for persisted bodies.")
	fs.StringVar(&opts.WorkDir, "workdir", "", "Directory that bounds file restoration.")
	fs.StringVar(&opts.StoreDir, "store", "", "Compact the session store <dir>/<session>.json instead of -in.")
	fs.StringVar(&opts.HTMLPath, "html", "", "Write an HTML report of the compaction.")
	fs.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error.")
	fs.BoolVar(&opts.Watch, "watch", false, "Keep running and compact matching files whenever they change.")
	fs.DurationVar(&opts.Debounce, "debounce", 500*time.Millisecond, "Minimum interval between compactions of one file in -watch mode.")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("%w\n%s", err, out.String())
	}
	if opts.Input == "" && fs.NArg() > 0 {
		opts.Input = fs.Arg(0)
	}
	opts.Input = strings.TrimSpace(opts.Input)
	opts.SessionID = strings.TrimSpace(opts.SessionID)

	switch {
	case opts.StoreDir == "" && opts.Input == "":
		return cliOptions{}, errors.New("one of -in or -store is required")
	case opts.StoreDir != "" && opts.Input != "":
		return cliOptions{}, errors.New("-in and -store are mutually exclusive")
	case opts.Watch && opts.StoreDir != "":
		return cliOptions{}, errors.New("-watch needs -in")
	case opts.Watch && (opts.Output != "" || opts.HTMLPath != ""):
		return cliOptions{}, errors.New("-watch rewrites files in place; -out and -html are not supported")
	}
	return opts, nil
}
