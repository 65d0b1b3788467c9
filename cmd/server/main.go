// seotrackのエントリーポイント。
// サブコマンド（serve/worker/migrate/healthcheck）をappパッケージに委譲する。
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/seotrack/internal/app"
)

func main() {
	if err := app.Run(nil, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
