// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spezifisch/mprisctl/config"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var osExit = os.Exit  // A variable to allow mocking os.Exit in tests
var headlessMode bool // This can be set to true during tests

const DEVELOPMENT = "development"

// Name is the program name, also used in the demo player's identity
var Name string = "mprisctl"

// Version is the program version; usually set from BuildInfo
var Version string = DEVELOPMENT

// configError marks problems with the configuration, reported with exit
// code 2.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// app is the state shared by all commands.
type app struct {
	v          *viper.Viper
	cfg        config.Config
	configFile string

	out    io.Writer
	errOut io.Writer
	logger *logger.ZerologLogger
}

func newApp(fs afero.Fs, out, errOut io.Writer) *app {
	return &app{
		v:      config.New(fs),
		out:    out,
		errOut: errOut,
		logger: logger.NewZerolog(errOut, "info", true),
	}
}

// loadConfig reads the config file and applies flags and environment on
// top. It runs before every command.
func (a *app) loadConfig() error {
	if err := config.Read(a.v, a.configFile); err != nil {
		return &configError{err}
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return &configError{err}
	}
	a.cfg = cfg
	a.logger = logger.NewZerolog(a.errOut, cfg.LogLevel, !cfg.LogJSON)
	return nil
}

// return codes:
// 0 - OK
// 1 - generic errors
// 2 - config errors
func exitCode(err error) int {
	var ce *configError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ce):
		return 2
	}
	return 1
}

// run executes the command line and reports errors on errOut.
func run(cmd *cobra.Command, args []string, errOut io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", Name, err)
	}
	return exitCode(err)
}

func main() {
	if Version == DEVELOPMENT {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
			Version = bi.Main.Version
		}
	}

	a := newApp(afero.NewOsFs(), os.Stdout, os.Stderr)
	osExit(run(newRootCmd(a), os.Args[1:], os.Stderr))
}
