package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
	"github.com/utkarshx27/ai-powered-interview/internal/candidate"
	"github.com/utkarshx27/ai-powered-interview/internal/evaluation"
	"github.com/utkarshx27/ai-powered-interview/internal/interview"
	"github.com/utkarshx27/ai-powered-interview/internal/logger"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
)

const (
	PromptRetry          = "Retry"
	PromptAbort          = "Abort interview"
	PromptSkipSaving     = "Skip saving the record"
	PromptNewInterview   = "Start New Interview"
	PromptQuit           = "Quit"
	candidatePromptLabel = "You"
)

var errSkipSaving = errors.New("evaluation skipped")

var interviewCmd = &cobra.Command{
	Use:   "interview [resume]",
	Short: "Interview a candidate from a resume and save the evaluated record",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInterview(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("job-description", "J", "", "job description the candidate is interviewed for")

	viper.BindPFlag("job-description", interviewCmd.Flags().Lookup("job-description"))
}

func runInterview(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redactedConfig(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	p, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the interview", zap.Error(err))
	}
	defer p.Close()

	store, err := p.openStore(ctx)
	if err != nil {
		logger.Fatal("opening record store", zap.Error(err))
	}
	p.withJournal(ctx)

	fmt.Println(titleStyle.Render("Job Description"))
	fmt.Println(config.JobDescription)

	path, err := resumePath(args)
	for {
		if err != nil {
			logger.Fatal("reading resume path", zap.Error(err))
		}

		if err := interviewCandidate(ctx, p, store, path); err != nil {
			if ctx.Err() != nil {
				logger.Info("exiting", zap.String("reason", "interrupted"))
				return
			}
			logger.Error("interview failed", zap.String("resume", path), zap.Error(err))
		}

		_, action, selErr := (&promptui.Select{
			Label: "What next?",
			Items: []string{PromptNewInterview, PromptQuit},
		}).Run()
		if selErr != nil || action == PromptQuit {
			return
		}

		path, err = resumePath(nil)
	}
}

// interviewCandidate runs the whole pipeline for one resume.
func interviewCandidate(ctx context.Context, p *pipeline, store record.Store, path string) error {
	profile, err := p.loadProfile(ctx, path)
	if err != nil {
		return fmt.Errorf("processing resume: %w", err)
	}
	fmt.Println(renderProfile(profile))

	session := interview.New(p.model, profile.Summary(), p.config.JobDescription,
		interview.WithJournal(p.journal),
		interview.WithLogger(p.logger),
		interview.WithMaxLogLength(p.config.AI.MaxLogLength),
	)
	sessionLogger := logger.WithFields(p.logger, logger.InterviewFields(session.ID(), profile.Name)...)

	fmt.Println(titleStyle.Render("Interview Session"))
	fmt.Println(warnStyle.Render(fmt.Sprintf("Type %q to finish the interview and see the results.", interview.ExitCommand)))

	if err := greet(ctx, session); err != nil {
		return err
	}

	if err := converse(ctx, session, sessionLogger); err != nil {
		return err
	}

	feedback, err := evaluate(ctx, p.evaluator, profile, p.config.JobDescription, session.Log(), sessionLogger)
	if errors.Is(err, errSkipSaving) {
		sessionLogger.Info("record not saved", zap.String("reason", "evaluation skipped"))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(renderFeedback(feedback))

	rec := record.NewRecord(profile, evaluation.SerializeTranscript(session.Log()), feedback, time.Now())
	id, err := store.Append(ctx, rec)
	if err != nil {
		// The feedback stays on screen; only persistence failed.
		return fmt.Errorf("saving candidate record: %w", err)
	}

	fmt.Println(labelStyle.Render(fmt.Sprintf("Candidate record #%d saved.", id)))
	return nil
}

func greet(ctx context.Context, session *interview.Session) error {
	for {
		greeting, err := session.Start(ctx)
		if err == nil {
			fmt.Println(renderInterviewer(greeting.Content))
			return nil
		}
		if !errors.Is(err, ai.ErrServiceUnavailable) || !confirmRetry(err) {
			return err
		}
	}
}

// converse reads candidate replies until the session terminates. A failed turn
// offers the same reply again so it can be resent as is.
func converse(ctx context.Context, session *interview.Session, sessionLog *zap.Logger) error {
	var retryInput string

	for {
		prompt := promptui.Prompt{
			Label:     candidatePromptLabel,
			Default:   retryInput,
			AllowEdit: true,
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("reply is empty")
				}
				return nil
			},
		}

		input, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			input = interview.ExitCommand
		} else if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}

		reply, err := session.Submit(ctx, input)
		switch {
		case errors.Is(err, interview.ErrSessionTerminated):
			sessionLog.Info("interview finished", zap.Int("messages", len(session.Log())))
			return nil
		case errors.Is(err, ai.ErrServiceUnavailable):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sessionLog.Warn("interview turn failed", zap.Error(err))
			fmt.Println(warnStyle.Render("The interviewer did not answer. Press enter to send your reply again."))
			retryInput = input
			continue
		case err != nil:
			return err
		}

		retryInput = ""
		fmt.Println(renderInterviewer(reply.Content))
	}
}

func evaluate(ctx context.Context, evaluator *evaluation.Evaluator, profile *candidate.Profile, jobDescription string, transcript []ai.Message, sessionLog *zap.Logger) (*evaluation.Feedback, error) {
	for {
		fmt.Println(warnStyle.Render("Generating feedback..."))

		feedback, err := evaluator.Evaluate(ctx, profile.Summary(), jobDescription, transcript)
		if err == nil {
			return feedback, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		sessionLog.Warn("evaluation failed", zap.Error(err))

		_, action, selErr := (&promptui.Select{
			Label: fmt.Sprintf("Evaluation failed (%v). What next?", err),
			Items: []string{PromptRetry, PromptSkipSaving},
		}).Run()
		if selErr != nil {
			return nil, selErr
		}
		if action == PromptSkipSaving {
			return nil, errSkipSaving
		}
	}
}

func confirmRetry(cause error) bool {
	_, action, err := (&promptui.Select{
		Label: fmt.Sprintf("The interviewer is unavailable (%v). Retry?", cause),
		Items: []string{PromptRetry, PromptAbort},
	}).Run()
	return err == nil && action == PromptRetry
}

// redactedConfig hides inline secrets before the config is logged.
func redactedConfig(config *Config) Config {
	out := *config
	if config.AI != nil {
		aiCfg := *config.AI
		if aiCfg.Gemini != nil {
			g := *aiCfg.Gemini
			g.APIKey = redact(g.APIKey)
			aiCfg.Gemini = &g
		}
		if aiCfg.OpenAI != nil {
			o := *aiCfg.OpenAI
			o.APIKey = redact(o.APIKey)
			aiCfg.OpenAI = &o
		}
		out.AI = &aiCfg
	}
	if config.Journal != nil {
		j := *config.Journal
		j.Redis.Password = redact(j.Redis.Password)
		out.Journal = &j
	}
	return out
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
