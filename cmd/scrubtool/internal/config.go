package internal

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-scrub/scrub"
)

// AddFlags adds the scrubber configuration flags to flags, using the values
// in cfg as defaults.
func AddFlags(flags *pflag.FlagSet, cfg *scrub.Config) {
	flags.IntVar(&cfg.LeafCount, "leaf-count", cfg.LeafCount,
		"number of merkle tree leaves, a power of two")
	flags.DurationVar(&cfg.MaxRangeAge, "max-range-age", cfg.MaxRangeAge,
		"how long consistent ranges may be used to skip objects (0 for no limit)")
	flags.IntVar(&cfg.EncodedTreeCache, "encoded-tree-cache", cfg.EncodedTreeCache,
		"number of encoded local trees to cache")
}

func withErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}

// LoadConfig reads the config file at path from fs into cfg. Keys missing in
// the file keep their current values.
func LoadConfig(fs afero.Fs, path string, cfg *scrub.Config) error {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(hook), withErrorUnused()); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
