package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, w io.Writer) error {
	return newApp(w).RunContext(ctx, append([]string{"smg"}, args...))
}

func newApp(w io.Writer) *cli.App {
	return &cli.App{
		Name:      "smg",
		Usage:     "evaluate C expressions over a symbolic memory graph",
		Writer:    w,
		ErrWriter: w,
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "run a scenario and check its expectations",
				ArgsUsage: "SCENARIO.yaml",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dump", Usage: "print options and heap of every terminated state"},
					&cli.BoolFlag{Name: "bfs", Usage: "explore states breadth-first"},
					&cli.IntFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log verbosity"},
				},
				Action: func(cctx *cli.Context) error {
					if cctx.NArg() != 1 {
						return fmt.Errorf("exactly one scenario required")
					}
					cmd := NewEvalCommand(w)
					cmd.Dump, cmd.BFS = cctx.Bool("dump"), cctx.Bool("bfs")
					configureLogging(cctx.Int("verbose"))
					return cmd.Run(cctx.Context, cctx.Args().First())
				},
			},
			{
				Name:      "expr",
				Usage:     "evaluate a single expression",
				ArgsUsage: "EXPR",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "decl", Aliases: []string{"d"}, Usage: "declaration or statement run before EXPR"},
					&cli.StringFlag{Name: "machine", Value: "lp64", Usage: "machine model (lp64, ilp32)"},
					&cli.IntFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log verbosity"},
				},
				Action: func(cctx *cli.Context) error {
					if cctx.NArg() != 1 {
						return fmt.Errorf("exactly one expression required")
					}
					cmd := NewExprCommand(w)
					cmd.Decls, cmd.Machine = cctx.StringSlice("decl"), cctx.String("machine")
					configureLogging(cctx.Int("verbose"))
					return cmd.Run(cctx.Context, cctx.Args().First())
				},
			},
		},
	}
}
