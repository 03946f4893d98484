package main

import (
	"context"

	"booksync-backend/cmd/booksync-cli/commands"
	"booksync-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "booksync-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
