package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
)

const (
	defaultAutonomousMs = 15000
	defaultOpControlMs  = 105000
)

// cmdCompetition drives the competition-state simulation subcommands:
// autonomous, opcontrol, disable and the composite start.
func cmdCompetition(ctx context.Context, cfg *globalConfig, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: competition <autonomous|opcontrol|disable|start> [-l ms]")
	}
	mode, rest := args[0], args[1:]

	fs := flag.NewFlagSet("competition "+mode, flag.ContinueOnError)
	defaultLen := 0
	switch mode {
	case "autonomous":
		defaultLen = defaultAutonomousMs
	case "opcontrol":
		defaultLen = defaultOpControlMs
	}
	lengthMs := fs.Int("l", defaultLen, "duration in milliseconds, 0 to skip the sleep")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	switch mode {
	case "disable":
		return conn.Brain.SetCompetitionState(ctx, brain.CompetitionDisabled)
	case "autonomous":
		return runCompetitionPhase(ctx, conn.Brain, brain.CompetitionAutonomous, *lengthMs)
	case "opcontrol":
		return runCompetitionPhase(ctx, conn.Brain, brain.CompetitionOpControl, *lengthMs)
	case "start":
		if err := runCompetitionPhase(ctx, conn.Brain, brain.CompetitionAutonomous, defaultAutonomousMs); err != nil {
			return err
		}
		return runCompetitionPhase(ctx, conn.Brain, brain.CompetitionOpControl, defaultOpControlMs)
	default:
		return fmt.Errorf("unknown competition mode %q", mode)
	}
}

func runCompetitionPhase(ctx context.Context, b *brain.Brain, state brain.CompetitionState, lengthMs int) error {
	if err := b.SetCompetitionState(ctx, state); err != nil {
		return err
	}
	if lengthMs <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(lengthMs) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
