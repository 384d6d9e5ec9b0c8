package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/utkarshx27/ai-powered-interview/internal/journal"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
)

const (
	app = "interviewer"

	defaultJobDescription = "Job Title: Data Scientist, Experience: 1+ years"
)

type Config struct {
	JobDescription string         `mapstructure:"job-description"`
	AI             *AIConfig      `mapstructure:"ai"`
	Store          record.Config  `mapstructure:"store"`
	Journal        *JournalConfig `mapstructure:"journal"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api-key"`
	APIKeyFile  string        `mapstructure:"api-key-file"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base-url"`
	Temperature *float64      `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type JournalConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	Redis   journal.RedisConfig `mapstructure:"redis"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs an AI-driven technical interview against a candidate resume",
	}
)

// Execute executes the root command. Ctrl+C cancels in-flight model calls.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	envBindings := map[string]string{
		"job-description":        "INTERVIEWER_JOB_DESCRIPTION",
		"ai.provider":            "INTERVIEWER_AI_PROVIDER",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key":      "OPENAI_API_KEY",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"ai.openai.base-url":     "OPENAI_BASE_URL",
		"journal.redis.addr":     "REDIS_ADDR",
		"journal.redis.password": "REDIS_PASSWORD",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("job-description", defaultJobDescription)
	viper.SetDefault("ai.provider", providerGemini)
	viper.SetDefault("store.driver", record.DriverCSV)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("store", "", "record store driver: csv or sqlite (default csv)")
	rootCmd.PersistentFlags().String("store-path", "", "record store file (default candidate_details.csv or candidate_details.db)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store-path"))
}

func initConfig() {
	// API keys are usually kept in .env next to the config.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional, every setting has a default or an env binding.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}
	if config.Journal == nil {
		config.Journal = &JournalConfig{}
	}

	return config, nil
}
