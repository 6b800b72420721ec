package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Command hooks, replaced in tests.
var (
	fnServe  = serve
	fnRun    = runDir
	fnModels = printModels
)

// buildRootCmd constructs the command tree. Output goes to stdout/stderr.
func buildRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &Flags{}
	root := &cobra.Command{
		Use:           "vlmeval",
		Short:         "Evaluate vision-language models across model-serving backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.ConfigPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&f.EnvFile, "env-file", ".env", "Optional .env file with VLMEVAL_* overrides")
	pf.StringVar(&f.Backend, "backend", "", "Backend kind: manual|gateway|explicit")
	pf.StringVar(&f.BackendURL, "backend-url", "", "Backend base URL")
	pf.StringSliceVar(&f.Models, "models", nil, "Ordered model list (comma separated)")
	pf.StringVar(&f.LogLevel, "log-level", "", "Log level: off|debug|info|warn|error")
	pf.StringVar(&f.LogFile, "log-file", "", "Rotating log file")
	pf.IntVar(&f.SettleMS, "settle-ms", -2, "Pause after each model turn in ms (-1 disables)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*f, stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return fnServe(ctx, rt)
		},
	}
	serveCmd.Flags().StringVar(&f.Addr, "addr", "", "HTTP listen address, e.g. :5001")

	var opt RunOptions
	runCmd := &cobra.Command{
		Use:     "run <dir>",
		Short:   "Evaluate every image in a directory",
		Example: "  vlmeval run ./images --mode classification --positive Airplane --negative 'Not airplane' --out results",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*f, stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			opt.Dir = args[0]
			if opt.MaxMB == 0 {
				opt.MaxMB = rt.cfg.MaxUploadMB
			}
			_, err = fnRun(cmd.Context(), rt, opt, cmd.OutOrStdout())
			return err
		},
	}
	rf := runCmd.Flags()
	rf.StringVar(&opt.Mode, "mode", "description", "Prompt mode: description|classification")
	rf.StringVar(&opt.Positive, "positive", "", "Positive class label (classification)")
	rf.StringVar(&opt.Negative, "negative", "", "Negative class label (classification)")
	rf.IntVar(&opt.Limit, "limit", 0, "Evaluate at most N images (0 = all)")
	rf.IntVar(&opt.MaxMB, "max-file-mb", 0, "Skip the run if an image exceeds this size (defaults to max_upload_mb)")
	rf.StringVarP(&opt.OutDir, "out", "o", "", "Directory for result rows and the JSON summary")
	rf.StringVar(&opt.Format, "format", "csv", "Result rows format: csv|jsonl")
	rf.StringVar(&opt.Prefix, "prefix", "evaluation", "Output file name prefix")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List backend models and configured model availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*f, stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			return fnModels(cmd.Context(), rt, cmd.OutOrStdout())
		},
	}

	root.AddCommand(serveCmd, runCmd, modelsCmd)
	return root
}

// MainWithArgs runs the CLI with explicit args and streams and returns an exit code.
func MainWithArgs(args []string, stdout, stderr io.Writer) int {
	root := buildRootCmd(stdout, stderr)
	root.SetArgs(args)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

// Main is the entry point used by cmd/vlmeval.
func Main() int { return MainWithArgs(os.Args[1:], os.Stdout, os.Stderr) }
