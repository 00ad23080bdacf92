package main

import (
	"context"
	"fmt"

	"github.com/marcus8448/v5ctl/internal/brain"
)

// cmdVariable gets or sets one of the two named kernel variables.
func cmdVariable(ctx context.Context, cfg *globalConfig, args []string) error {
	if len(args) < 2 || (args[0] != "get" || len(args) != 2) && (args[0] != "set" || len(args) != 3) {
		return fmt.Errorf("usage: variable get <team_number|robot_name> | variable set <team_number|robot_name> <value>")
	}
	v, err := brain.ParseKernelVariable(args[1])
	if err != nil {
		return err
	}

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if args[0] == "get" {
		value, err := conn.Brain.GetKernelVariable(ctx, v)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	}
	return conn.Brain.SetKernelVariable(ctx, v, args[2])
}
