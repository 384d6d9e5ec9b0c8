package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/logger"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List saved candidate records",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		store, err := record.Open(ctx, config.Store, logger)
		if err != nil {
			logger.Fatal("opening record store", zap.Error(err))
		}
		defer store.Close()

		records, err := store.List(ctx)
		if err != nil {
			logger.Fatal("listing records", zap.Error(err))
		}

		fmt.Println(renderRecords(records))
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}
