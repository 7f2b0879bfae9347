package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/small-frappuccino/botdash/pkg/app"
	"github.com/small-frappuccino/botdash/pkg/util"
)

type Options struct {
	Config   string `long:"config" short:"c" description:"Path to a botdash.yaml config file"`
	Listen   string `long:"listen" description:"Dashboard API listen address, e.g. 127.0.0.1:8377"`
	Store    string `long:"store" choice:"sqlite" choice:"file" choice:"memory" description:"Response store driver"`
	LogLevel string `long:"log-level" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	Version  bool   `long:"version" description:"Print the version and exit"`
}

func (o Options) overrides() map[string]any {
	out := map[string]any{}
	if o.Listen != "" {
		out["listen_addr"] = o.Listen
	}
	if o.Store != "" {
		out["store.driver"] = o.Store
	}
	if o.LogLevel != "" {
		out["log_level"] = o.LogLevel
	}
	return out
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if opts.Version {
		fmt.Println(app.Version)
		return
	}

	// Fill missing variables from $HOME/.local/bin/.env before viper reads the environment.
	_, _ = util.LoadEnvWithLocalBinFallback("")
	util.SetAppName(app.AppName)

	settings, err := app.LoadSettings(app.LoadOptions{ConfigFile: opts.Config, Overrides: opts.overrides()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background(), settings); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}
