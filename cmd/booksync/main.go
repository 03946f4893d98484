package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"time"

	"booksync-backend/lib/configutil"
	"booksync-backend/lib/configutil/storecfg"
	"booksync-backend/lib/scheduler"
	"booksync-backend/lib/scrapers/wordpress"
	"booksync-backend/lib/store"
	"booksync-backend/lib/telemetry"
	"booksync-backend/lib/util/serviceutil"
	"booksync-backend/services/booknetic"
	"booksync-backend/services/leads"
)

type BookneticConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// ExportDir holds manually downloaded export CSVs, used when the
	// site cannot be scraped directly.
	ExportDir string `json:"export_dir"`
	// ApiToken enables the appointments REST fallback.
	ApiToken string `json:"api_token"`
	// Snapshot switches the sync from incremental upserts to full
	// table replacement.
	Snapshot        bool `json:"snapshot"`
	IntervalMinutes int  `json:"interval_minutes"`
}

type LeadsConfig struct {
	leads.Config
	IntervalMinutes int `json:"interval_minutes"`
}

type Config struct {
	Database  storecfg.Struct `json:"database"`
	Booknetic BookneticConfig `json:"booknetic"`
	Leads     LeadsConfig     `json:"leads"`
	Port      int             `json:"port"`
}

func main() {
	verbose := flag.Bool("v", false, "enable verbose logging")
	flag.Parse()

	telemetry.InitSlog(*verbose)
	configutil.LoadDotenv()

	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}
	// credentials may come from the environment instead of config
	config.Booknetic.Username = configutil.Env("BOOKNETIC_USERNAME", config.Booknetic.Username)
	config.Booknetic.Password = configutil.Env("BOOKNETIC_PASSWORD", config.Booknetic.Password)
	config.Booknetic.ApiToken = configutil.Env("BOOKNETIC_API_TOKEN", config.Booknetic.ApiToken)
	if config.Port == 0 {
		config.Port = 9300
	}

	tel, err := telemetry.SetupFromEnv(ctx, "booksync")
	if err != nil {
		serviceutil.Fatal("failed to initialize telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	st := store.New(db)
	if err := st.EnsureSchema(ctx); err != nil {
		serviceutil.Fatal("failed to apply schema", err)
	}

	sched := scheduler.New()
	registerBooknetic(ctx, sched, st, config.Booknetic)
	registerLeads(ctx, sched, st, config.Leads)
	sched.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := st.RecentRuns(r.Context(), 50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	})
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
	sched.Wait()
}

func registerBooknetic(ctx context.Context, sched *scheduler.Scheduler, st store.Store, config BookneticConfig) {
	var adapters []booknetic.Adapter

	if config.BaseUrl != "" && config.Username != "" {
		client, err := wordpress.NewClient(wordpress.ClientOptions{
			BaseUrl: config.BaseUrl,
		})
		if err != nil {
			serviceutil.Fatal("failed to create wordpress client", err)
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
		serviceutil.Fatal(
			"no booknetic adapters configured",
			errors.New("set base_url+username, export_dir, or api_token"),
		)
	}

	service := booknetic.NewService(st, adapters...)
	interval := time.Minute * 15
	if config.IntervalMinutes > 0 {
		interval = time.Duration(config.IntervalMinutes) * time.Minute
	}

	sched.Register("booknetic_sync", interval, func(ctx context.Context) error {
		return st.RunJob(ctx, "booknetic_sync", func(ctx context.Context) (int, error) {
			if config.Snapshot {
				return service.SyncSnapshot(ctx)
			}
			return service.Sync(ctx)
		})
	})
}

func registerLeads(ctx context.Context, sched *scheduler.Scheduler, st store.Store, config LeadsConfig) {
	if config.Sheets.SpreadsheetId == "" {
		return
	}

	source, err := leads.NewSheetsSource(ctx, config.Sheets)
	if err != nil {
		serviceutil.Fatal("failed to create sheets client", err)
	}
	service := leads.NewService(st, source, config.Config)

	interval := time.Minute * 10
	if config.IntervalMinutes > 0 {
		interval = time.Duration(config.IntervalMinutes) * time.Minute
	}

	sched.Register("sheets_import", interval, func(ctx context.Context) error {
		return st.RunJob(ctx, "sheets_import", service.Import)
	})
}
