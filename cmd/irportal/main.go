// Command irportal は投資家向けIRポータルのAPIサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	irportal [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/cynco/irportal/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
