package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/OFFIS-RIT/argmap/internal/setup"
	"github.com/OFFIS-RIT/argmap/internal/util"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/logger/console"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// Factories for the services commands use. Tests replace them.
var (
	newExtractor  = setup.NewExtractor
	newStore      = setup.NewStore
	newTextLoader = setup.NewTextLoader
)

var rootCmd = &cobra.Command{
	Use:   "argmap",
	Short: "Extract argument maps from text",
	Long: `argmap turns free-form text into a graph of claims and the relationships
between them, using a generative language model.

Results are saved under a short content hash and can be listed and shown
again without calling the model.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug:  verbose || viper.GetBool("debug"),
			Output: cmd.ErrOrStderr(),
		}))
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.argmap/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads the .env file, the config file and ARGMAP_* variables.
func initConfig() {
	util.LoadEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.argmap")
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ARGMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig starts from the server environment and applies any value set
// in the config file or as ARGMAP_* variable on top.
func loadConfig() setup.Config {
	cfg := setup.ConfigFromEnv()

	stringKeys := map[string]*string{
		"adapter":       &cfg.Adapter,
		"chat_url":      &cfg.ChatURL,
		"model":         &cfg.Model,
		"api_key":       &cfg.APIKey,
		"project":       &cfg.Project,
		"location":      &cfg.Location,
		"cache_dir":     &cfg.CacheDir,
		"store.backend": &cfg.StoreBackend,
		"store.dir":     &cfg.StoreDir,
		"store.prefix":  &cfg.StorePrefix,
		"store.bucket":  &cfg.S3Bucket,
		"database_url":  &cfg.DatabaseURL,
	}
	for key, dst := range stringKeys {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}

	if viper.IsSet("cache") {
		cfg.CacheEnabled = viper.GetBool("cache")
	}
	if viper.IsSet("parallel_requests") {
		cfg.ParallelRequests = viper.GetInt64("parallel_requests")
	}
	if viper.IsSet("store.hash_length") {
		cfg.HashLength = viper.GetInt("store.hash_length")
	}
	if viper.IsSet("strict_graph") {
		cfg.StrictGraph = viper.GetBool("strict_graph")
	}
	return cfg
}

func openStore(ctx context.Context) (store.Store, func(), error) {
	s, closeFn, err := newStore(ctx, loadConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, closeFn, nil
}

func openExtractor() (*argmap.Extractor, error) {
	ex, err := newExtractor(loadConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return ex, nil
}
