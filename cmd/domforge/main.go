// Command domforge renders document environments from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/domforge/domforge"
	"github.com/domforge/domforge/internal/logging"
)

var (
	flagScripts   string
	flagUserAgent string
	flagReferrer  string
	flagTimeout   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "domforge",
		Short:         "Build and inspect virtual document environments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagScripts, "scripts", "none", "script execution mode: none, outside-only, dangerously")
	root.PersistentFlags().StringVar(&flagUserAgent, "user-agent", "", "override the outbound and navigator user agent")
	root.PersistentFlags().StringVar(&flagReferrer, "referrer", "", "document referrer")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "fetch timeout for URLs")

	root.AddCommand(renderCmd(), evalCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <url|file>",
		Short: "Construct an environment and print its serialization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := env.Serialize()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func evalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <url|file> <expression>",
		Short: "Construct an environment and evaluate an expression in it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagScripts == "none" {
				flagScripts = "outside-only"
			}
			env, err := buildEnv(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			val, err := env.Eval(args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", val)
			return nil
		},
	}
}

func buildEnv(ctx context.Context, target string) (*domforge.Environment, error) {
	mode, err := domforge.ParseRunScripts(flagScripts)
	if err != nil {
		return nil, err
	}
	log := logging.NewDevelopment()
	opts := &domforge.Options{
		Referrer:       flagReferrer,
		UserAgent:      flagUserAgent,
		RunScripts:     mode,
		VirtualConsole: domforge.NewVirtualConsole().SendTo(log.Logger, nil),
	}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		ctx, cancel := context.WithTimeout(ctx, flagTimeout)
		defer cancel()
		return domforge.FromURL(ctx, target, opts)
	}

	source, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}
	return domforge.New(string(source), opts)
}

