// Command scrubtool builds, inspects and compares encoded merkle trees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-scrub/cmd/scrubtool/internal"
	"github.com/spacemeshos/go-scrub/scrub"
	"github.com/spacemeshos/go-scrub/types"
)

func main() {
	if err := getCommand(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// loadConfig loads the config file into cfg, then applies the flags that were
// set on the command line on top of it.
func loadConfig(fs afero.Fs, flags *pflag.FlagSet, path string, cfg *scrub.Config) error {
	changed := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if err := internal.LoadConfig(fs, path, cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("parsing flag %s: %w", name, err)
		}
	}
	return nil
}

func getCommand(fs afero.Fs) *cobra.Command {
	conf := scrub.DefaultConfig()
	var (
		configPath string
		logLevel   string
	)
	root := &cobra.Command{
		Use:           "scrubtool",
		Short:         "build, dump and diff merkle trees of object listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if configPath != "" {
				if err := loadConfig(fs, c.Flags(), configPath, &conf); err != nil {
					return err
				}
			}
			return conf.Validate()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "load configuration from file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	internal.AddFlags(root.PersistentFlags(), &conf)

	var objectsPath, outPath string
	build := &cobra.Command{
		Use:   "build",
		Short: "build an encoded tree from an object listing",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return internal.BuildTree(fs, logger, objectsPath, outPath, conf.LeafCount)
		},
	}
	build.Flags().StringVar(&objectsPath, "objects", "", "object listing, one 'hash epoch counter' per line")
	build.Flags().StringVar(&outPath, "out", "", "file to write the encoded tree to")
	build.MarkFlagRequired("objects")
	build.MarkFlagRequired("out")

	dump := &cobra.Command{
		Use:   "dump FILE",
		Short: "print an encoded tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return internal.DumpTree(fs, c.OutOrStdout(), args[0])
		},
	}

	var peer int32
	diff := &cobra.Command{
		Use:   "diff A B",
		Short: "compare two encoded trees",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return internal.DiffTrees(fs, c.OutOrStdout(), args[0], args[1], types.NewShardID(peer))
		},
	}
	diff.Flags().Int32Var(&peer, "peer", 0, "osd id to tag the consistent ranges with")

	root.AddCommand(build, dump, diff)
	return root
}
