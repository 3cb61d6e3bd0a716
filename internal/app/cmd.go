package app

import "fmt"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合の既定値。
	CommandServe Command = "serve"
	// CommandWorker はセッション削除とリンクチェックのワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中サーバーの /health を確認する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返し、未知のサブコマンドはエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown command %q (want serve, worker, migrate or healthcheck)", args[0])
	}
}
