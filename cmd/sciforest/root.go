package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/pkg/telemetry"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "sciforest",
		Short: "tree ensembles for dense and sparse data",

		// SilenceUsage keeps usage text out of runtime errors.
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return configure(cmd, v)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			path := v.GetString("metrics-file")
			if path == "" {
				return nil
			}
			return telemetry.WriteTextfile(path)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "warn", "debug, info, warn or error")
	flags.Bool("log-console", false, "human-readable log output instead of JSON")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newTrainCmd(v),
		newPredictCmd(v),
		newInspectCmd(v),
		newRenderCmd(v),
	)
	return root
}

// configure binds the running command's flags, environment and config file into v, then
// installs the logger they select.
func configure(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvPrefix("SCIFOREST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return scierrors.Wrap(err, "failed to bind flags")
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return scierrors.Wrap(err, "failed to bind persistent flags")
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return scierrors.Wrapf(err, "failed to read config %s", path)
		}
	}

	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	if v.GetBool("log-console") {
		log.SetProvider(log.NewConsoleProvider(cmd.ErrOrStderr(), level))
	} else {
		log.SetProvider(log.NewZerologProvider(cmd.ErrOrStderr(), level))
	}
	return nil
}

// requireString returns the value of a mandatory string setting.
func requireString(v *viper.Viper, key string) (string, error) {
	s := v.GetString(key)
	if s == "" {
		return "", scierrors.NewConfigurationError(key, "is required", s)
	}
	return s, nil
}
