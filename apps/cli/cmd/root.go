package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/apiharness/packages/core/config"
	"github.com/abdul-hamid-achik/apiharness/packages/core/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool

	// settings is the loaded config file with global flags merged over it.
	settings = config.DefaultConfig()
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "apiharness",
	Short: "Drive HTTP APIs the way your tests do.",
	Long: `apiharness sends requests through the same session, decoding chain and
result envelope that API test scenarios use, and serves canned responses
for those scenarios to run against.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFlag)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		settings = loaded.Merge(globalFlagConfig())

		l, err := logging.ForVerbosity(settings.LogLevel, settings.GetVerbose())
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("APIHARNESS_CONFIG", ""), "Path to config file (env: APIHARNESS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("APIHARNESS_VERBOSE", false), "Verbose output and debug logging (env: APIHARNESS_VERBOSE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("APIHARNESS_NO_COLOR", false), "Disable colored output (env: APIHARNESS_NO_COLOR)")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(versionCmd)
}

// globalFlagConfig holds the persistent flags that were turned on. Flags left
// off defer to the config file.
func globalFlagConfig() *config.Config {
	cfg := &config.Config{}
	if verboseFlag {
		cfg.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}
	return cfg
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
