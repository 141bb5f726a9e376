package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/mvp-joe/bytemetrics/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bytemetrics",
	Short: "Bytemetrics - object-oriented metrics for compiled JVM classes",
	Long: `Bytemetrics reads .class files from a jar, jmod, or class directory and
reports ABC complexity, average field count, inheritance depth, and
average override count for the batch.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetFlags(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .bytemetrics/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the --config file when given, otherwise
// .bytemetrics/config.yml in the working directory.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		source := cfgFile
		if source == "" {
			source = ".bytemetrics/config.yml (if present)"
		}
		fmt.Fprintln(os.Stderr, "Using config:", source)
	}
	return cfg, nil
}
