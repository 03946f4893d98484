package commands

import (
	"context"
	"fmt"
	"os"

	"booksync-backend/lib/configutil"
	"booksync-backend/lib/configutil/storecfg"
	"booksync-backend/lib/store"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "booksync-cli",
	Short: "booksync-cli inspects and drives the booking sync pipeline.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Database storecfg.Struct `json:"database"`
}

func openStore() (store.Store, error) {
	configutil.LoadDotenv()
	config, err := configutil.ReadRecursively[Config]("config.json5")
	if err != nil {
		return store.Store{}, fmt.Errorf("read config: %w", err)
	}
	db, err := config.Database.OpenDB()
	if err != nil {
		return store.Store{}, fmt.Errorf("open database: %w", err)
	}
	return store.New(db), nil
}
