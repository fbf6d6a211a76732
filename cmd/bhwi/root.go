// Package bhwi is the CLI front-end: ambient cobra/viper glue binding the
// device façades to a handful of user-facing subcommands. None of the
// interpreter logic lives here.
package bhwi

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     Config
	logger  *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "bhwi",
		Short: "Talk to Ledger, Coldcard and Jade Bitcoin hardware signers",
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file to use")
	rootCmd.PersistentFlags().String("device", "ledger", "device to talk to (ledger, coldcard, jade)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging of dispatched frames")

	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(xpubCmd)
}

func initConfig() {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultConfigDirectory()
		if err == nil {
			v.AddConfigPath(dir)
			v.SetConfigType("toml")
			v.SetConfigName("bhwi")
		}
	}

	// A missing config file is fine; defaults apply.
	_ = v.ReadInConfig()

	loaded, err := loadConfig(v)
	cobra.CheckErr(err)
	cfg = loaded

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	if device, _ := rootCmd.PersistentFlags().GetString("device"); device != "" && device != "ledger" {
		cfg.Device = device
	}

	if cfg.Verbose {
		l, err := zap.NewDevelopment()
		cobra.CheckErr(err)
		logger = l
	} else {
		logger = zap.NewNop()
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
