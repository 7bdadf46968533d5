package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/config"
	"culturax-service/internal/infra/memory"
	"culturax-service/internal/infra/postgres"
	"culturax-service/internal/logging"
	"github.com/spf13/cobra"
)

// NewImportCmd validates a question file and optionally publishes it as a new quiz.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		publish bool
		adminID string
		form    = app.DefaultQuizForm()
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a JSON question file, or publish it with --publish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			draft := app.NewAdminDraft()
			if err := draft.ImportJSON(filepath.Base(args[0]), data); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d questions\n", draft.FileName, len(draft.Questions))
			if !publish {
				return nil
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logging.New(cfg.App.Name, cfg.App.LogLevel)

			db, err := postgres.Open(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			gateway := postgres.NewGateway(db)
			catalog := memory.NewQuizCatalog(postgres.NewQuizLoader(db), time.Minute, nil)
			admin := app.NewAdminService(gateway, catalog, memory.NewDraftStore(), log, nil)

			draft.Form = form
			quizID, err := admin.SaveQuiz(cmd.Context(), adminID, draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "published quiz %s\n", quizID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "store the questions as a new quiz")
	cmd.Flags().StringVar(&adminID, "admin", "", "user id recorded as the quiz author")
	cmd.Flags().StringVar(&form.Title, "title", "", "quiz title")
	cmd.Flags().StringVar(&form.Description, "description", "", "quiz description")
	cmd.Flags().StringVar(&form.Category, "category", "", "quiz category")
	cmd.Flags().StringVar(&form.Difficulty, "difficulty", form.Difficulty, "easy, medium or hard")
	cmd.Flags().IntVar(&form.TimeLimit, "time-limit", form.TimeLimit, "time limit in seconds")
	return cmd
}
