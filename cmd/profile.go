package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/logger"
)

var profileCmd = &cobra.Command{
	Use:   "profile [resume]",
	Short: "Extract and print the candidate profile from a resume",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		p, err := newPipeline(ctx, config, logger)
		if err != nil {
			logger.Fatal("preparing the extraction", zap.Error(err))
		}
		defer p.Close()

		path, err := resumePath(args)
		if err != nil {
			logger.Fatal("reading resume path", zap.Error(err))
		}

		profile, err := p.loadProfile(ctx, path)
		if err != nil {
			logger.Fatal("processing resume", zap.String("resume", path), zap.Error(err))
		}

		fmt.Println(renderProfile(profile))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
