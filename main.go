package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/clipstash/internal/cli"
)

func main() {
	// Parse command-line arguments
	var args cli.Args
	parser := arg.MustParse(&args)

	slog.SetDefault(cli.NewLogger(os.Stderr, args.Verbose, args.Quiet))

	// Without a subcommand, show the most recent items
	if !args.HasCommand() {
		args.List = &cli.ListCmd{Limit: 20}
	}

	cliHandler, err := cli.NewWithArgs(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Execute the command
	if err := cliHandler.Execute(&args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		// If it's an argument validation error, show usage
		if verr := args.Validate(); verr != nil {
			fmt.Fprintln(os.Stderr)
			parser.WriteUsage(os.Stderr)
		}
		os.Exit(1)
	}
}
