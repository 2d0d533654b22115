package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/doudou/flexmock/coreengine/config"
	"github.com/doudou/flexmock/coreengine/observability"
	"github.com/doudou/flexmock/mockbus"
)

// app is the state shared by the subcommands of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	config  *config.EngineConfig
	logger  *stdLogger
}

// newRootCmd creates the root flexmock command with all subcommands attached.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "flexmock",
		Short: "Run mock expectation scenarios",
		Long: "flexmock declares mocks and expectations from a YAML scenario, plays\n" +
			"its scripted calls through the expectation engine and reports the outcome.",
		Version:       observability.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}
	cmd.SetVersionTemplate("flexmock {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./.flexmock.yaml when present)")
	flags.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	flags.Bool("log-dispatch", false, "log every dispatched call")
	flags.Bool("strict-keywords", true, "with(...) forbids undeclared keyword arguments")

	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log_dispatch", flags.Lookup("log-dispatch"))
	_ = a.v.BindPFlag("strict_keyword_args", flags.Lookup("strict-keywords"))

	cmd.AddCommand(
		newRunCmd(a),
		newDescribeCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// loadConfig resolves the engine configuration from defaults, the config
// file, FLEXMOCK_* environment variables and flags, in increasing priority.
func (a *app) loadConfig(cmd *cobra.Command) error {
	defaults := config.DefaultEngineConfig().ToMap()
	for key, value := range defaults {
		a.v.SetDefault(key, value)
	}

	a.v.SetEnvPrefix("FLEXMOCK")
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".flexmock")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// Environment values arrive as strings; read each key with the type of
	// its default.
	settings := make(map[string]any, len(defaults))
	for key, value := range defaults {
		switch value.(type) {
		case bool:
			settings[key] = a.v.GetBool(key)
		case int:
			settings[key] = a.v.GetInt(key)
		default:
			settings[key] = a.v.GetString(key)
		}
	}
	a.config = config.EngineConfigFromMap(settings)
	a.logger = newStdLogger(cmd.ErrOrStderr(), a.config.LogLevel)
	a.logger.Debug("config_loaded", "file", a.v.ConfigFileUsed(), "settings", a.config.ToMap())
	return nil
}

// options returns the mock options derived from the loaded configuration.
func (a *app) options() []mockbus.Option {
	return []mockbus.Option{mockbus.WithLogger(a.logger)}
}

// startTracing installs the OTLP exporter when tracing is enabled. The
// returned function flushes it.
func (a *app) startTracing(ctx context.Context) (func(), error) {
	if !a.config.EnableTracing {
		return func() {}, nil
	}
	shutdown, err := observability.InitTracer(a.config.ServiceName, a.config.TraceEndpoint)
	if err != nil {
		return nil, err
	}
	a.logger.Info("tracing_enabled", "endpoint", a.config.TraceEndpoint)
	return func() {
		if err := shutdown(ctx); err != nil {
			a.logger.Warn("tracer_shutdown_failed", "error", err)
		}
	}, nil
}
