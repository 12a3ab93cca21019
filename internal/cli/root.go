// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the seal command line tool.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
)

// Persistent flag names. Each is also read from SEAL_<NAME> with dashes
// replaced by underscores.
const (
	flagConfig    = "config"
	flagOutput    = "output"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagVerbose   = "verbose"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger logging.Logger
	out    io.Writer
	errOut io.Writer
}

// NewRootCmd builds the seal command tree. Output goes to out, logs and
// errors to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		logger: logging.NewNop(),
		out:    out,
		errOut: errOut,
	}

	rootCmd := &cobra.Command{
		Use:   "seal",
		Short: "seal - threshold identity-based encryption tool",
		Long: `seal encrypts data so that any threshold of a fixed set of key servers
can jointly release its decryption key, and runs such a key server.

Configuration is read from a YAML file (--config), SEAL_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "config file (YAML)")
	flags.StringP(flagOutput, "o", string(OutputFormatText), "output format (text, json)")
	flags.String(flagLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(flagLogFormat, "", "log format (text, json)")
	flags.BoolP(flagVerbose, "v", false, "shorthand for --log-level=debug")

	a.v.SetEnvPrefix("SEAL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	rootCmd.AddCommand(
		a.newKeygenCmd(),
		a.newEncryptCmd(),
		a.newDecryptCmd(),
		a.newInspectCmd(),
		a.newServeCmd(),
		a.newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the seal command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		printer := NewPrinter(outputFormat(cmd), os.Stderr)
		_ = printer.PrintError(err)
		return 1
	}
	return 0
}

func outputFormat(cmd *cobra.Command) string {
	f, err := cmd.PersistentFlags().GetString(flagOutput)
	if err != nil || f == "" {
		return string(OutputFormatText)
	}
	return f
}

// load reads the configuration file and layers flag values over it.
func (a *app) load(*cobra.Command, []string) error {
	switch OutputFormat(a.v.GetString(flagOutput)) {
	case OutputFormatText, OutputFormatJSON:
	default:
		return fmt.Errorf("unknown output format: %s", a.v.GetString(flagOutput))
	}

	cfg, err := config.Load(a.v.GetString(flagConfig))
	if err != nil {
		return err
	}
	if lvl := a.v.GetString(flagLogLevel); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if a.v.GetBool(flagVerbose) {
		cfg.Logging.Level = "debug"
	}
	if f := a.v.GetString(flagLogFormat); f != "" {
		cfg.Logging.Format = f
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Format: strings.ToLower(cfg.Logging.Format),
		Output: a.errOut,
	})
	return nil
}

func (a *app) printer() *Printer {
	return NewPrinter(a.v.GetString(flagOutput), a.out)
}
