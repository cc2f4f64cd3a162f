package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/tilejit/config"
	"github.com/leftmike/tilejit/flags"
)

var (
	tilejitCmd = &cobra.Command{
		Use:               "tilejit",
		Short:             "A compiled query execution engine",
		Long:              "Tilejit compiles query plans into pipelines over in-memory MVCC tables.",
		SilenceUsage:      true,
		PersistentPreRunE: tilejitPreRun,
		PersistentPostRun: tilejitPostRun,
	}

	goFlags = flag.NewFlagSet("tilejit", flag.ContinueOnError)
	cfg     = config.NewConfig(goFlags)

	logFile = cfg.Var(new(string), "log-file").Usage("`file` to use for logging").
		String("tilejit.log")
	logLevel = cfg.Var(new(string), "log-level").
		Usage("log level: trace, debug, info, warn, error, fatal, or panic").
		Env("TILEJIT_LOG_LEVEL").String("info")
	flgs       = flags.Config(cfg)
	vectorSize = flags.VectorSize(cfg)

	logStderr = false
	logWriter io.WriteCloser

	configFile = "tilejit.hcl"
	noConfig   = false
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := tilejitCmd.PersistentFlags()
	fs.AddGoFlagSet(goFlags)
	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")
	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")
}

func Execute() error {
	return tilejitCmd.Execute()
}

func tilejitPreRun(cmd *cobra.Command, args []string) error {
	err := cfg.Env()
	if err != nil {
		return fmt.Errorf("tilejit: %w", err)
	}

	if configFile != "" && !noConfig {
		err = cfg.Load(configFile)
		if err != nil && (!os.IsNotExist(err) || cmd.Flags().Changed("config-file")) {
			return fmt.Errorf("tilejit: %w", err)
		}
	}

	if !logStderr && *logFile != "" {
		logWriter, err = os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("tilejit: %w", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("tilejit: %w", err)
	}
	log.SetLevel(ll)

	used := log.Fields{}
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			used[flg.Name] = flg.Value.String()
		})
	log.WithField("pid", os.Getpid()).WithFields(used).Info("tilejit starting")
	return nil
}

func tilejitPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("tilejit done")

	if logWriter != nil {
		logWriter.Close()
	}
}
