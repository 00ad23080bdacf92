// Command v5ctl is a host-side control tool for a VEX V5 robot brain: file
// management, program upload, execution and competition-state control, and
// a TCP daemon that multiplexes one physical connection among several
// clients.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcus8448/v5ctl/internal/logging"
)

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, rest, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	logging.Set(logging.New(cfg.logFormat, logLevel(cfg.logLevel), nil))

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: v5ctl [global flags] <command> [args]")
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := handler(ctx, cfg, cmdArgs); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// commandFunc is the shape of every subcommand entry point.
type commandFunc func(ctx context.Context, cfg *globalConfig, args []string) error

var commands = map[string]commandFunc{
	"status":      cmdStatus,
	"metadata":    cmdMetadata,
	"ls_files":    cmdLsFiles,
	"stop":        cmdStop,
	"run":         cmdRun,
	"rm_all":      cmdRmAll,
	"rm_file":     cmdRmFile,
	"rm_program":  cmdRmProgram,
	"variable":    cmdVariable,
	"competition": cmdCompetition,
	"upload":      cmdUpload,
	"daemon":      cmdDaemon,
	"terminal":    cmdTerminal,
	"capture":     cmdCapture,
}
