package bhwi

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the small set of CLI-level defaults a user can override in
// bhwi.toml (under ~/.config/bhwi, or the file given with --config): the
// default device, the default Bitcoin network, and verbosity.
// Jade's PIN-server URL is not configurable here: the device reports it on
// every auth handshake (jade.extractURL), so there is nothing for a static
// base URL to override.
type Config struct {
	Device  string `mapstructure:"device"`
	Network string `mapstructure:"network"`
	Verbose bool   `mapstructure:"verbose"`
}

// Default mirrors the teacher's package-level Default config literal.
var Default = Config{
	Device:  "ledger",
	Network: "bitcoin",
}

func defaultConfigDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bhwi"), nil
}

// loadConfig decodes v's contents into a Config via mapstructure, the same
// UnmarshalMap idiom the teacher uses for its own config structs.
func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Default
	if err := mapstructure.Decode(v.AllSettings(), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
