package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"booksync-backend/lib/configutil"
	"booksync-backend/lib/configutil/storecfg"
	"booksync-backend/lib/scrapers/wordpress"
	"booksync-backend/lib/store"
	"booksync-backend/services/booknetic"
	"booksync-backend/services/leads"

	"github.com/spf13/cobra"
)

var runSnapshot *bool

func init() {
	runSnapshot = runCmd.Flags().Bool("snapshot", false, "Replace table contents instead of upserting (booknetic only).")
	rootCmd.AddCommand(runCmd)
}

type BookneticConfig struct {
	BaseUrl   string `json:"base_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	ExportDir string `json:"export_dir"`
	ApiToken  string `json:"api_token"`
}

type RunConfig struct {
	Database  storecfg.Struct `json:"database"`
	Booknetic BookneticConfig `json:"booknetic"`
	Leads     leads.Config    `json:"leads"`
}

var runCmd = &cobra.Command{
	Use:   "run <booknetic|leads>",
	Short: "Runs one sync job to completion and records it in job_runs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configutil.LoadDotenv()
		config, err := configutil.ReadRecursively[RunConfig]("config.json5")
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		db, err := config.Database.OpenDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		st := store.New(db)
		if err := st.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}

		t1 := time.Now()
		switch args[0] {
		case "booknetic":
			err = runBooknetic(cmd, st, config.Booknetic)
		case "leads":
			err = runLeads(cmd, st, config.Leads)
		default:
			return fmt.Errorf("unknown job %q", args[0])
		}
		if err != nil {
			return err
		}

		slog.Info("job time", "seconds", time.Since(t1).Seconds())
		return nil
	},
}

func runBooknetic(cmd *cobra.Command, st store.Store, config BookneticConfig) error {
	var adapters []booknetic.Adapter
	if config.BaseUrl != "" && config.Username != "" {
		client, err := wordpress.NewClient(wordpress.ClientOptions{BaseUrl: config.BaseUrl})
		if err != nil {
			return err
		}
		adapters = append(adapters, &booknetic.ExportAdapter{
			Client:   client,
			Username: config.Username,
			Password: config.Password,
		})
	}
	if config.ExportDir != "" {
		adapters = append(adapters, &booknetic.ExportDirAdapter{Dir: config.ExportDir})
	}
	if config.BaseUrl != "" && config.ApiToken != "" {
		adapters = append(adapters, booknetic.NewAPIAdapter(config.BaseUrl, config.ApiToken))
	}
	if len(adapters) == 0 {
		return fmt.Errorf("no booknetic adapters configured")
	}

	service := booknetic.NewService(st, adapters...)
	return st.RunJob(cmd.Context(), "booknetic_sync", func(ctx context.Context) (int, error) {
		if *runSnapshot {
			return service.SyncSnapshot(ctx)
		}
		return service.Sync(ctx)
	})
}

func runLeads(cmd *cobra.Command, st store.Store, config leads.Config) error {
	source, err := leads.NewSheetsSource(cmd.Context(), config.Sheets)
	if err != nil {
		return err
	}
	service := leads.NewService(st, source, config)
	return st.RunJob(cmd.Context(), "sheets_import", service.Import)
}
