package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"auto_blog_writer/server"
	"auto_blog_writer/workflow"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv, err := server.New(a.engine, server.WithLogger(a.logger), server.WithGatherer(a.registry))
			if err != nil {
				return err
			}
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func startCmd(g *globalFlags) *cobra.Command {
	var (
		topic       string
		keywords    []string
		length      int
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new writing run",
		Example: `  blogwriter start --topic "Rust vs Go for CLIs" --keyword rust --keyword go -i
  blogwriter start --topic "Edge caching" --length 1200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := workflow.NewState(workflow.Input{Topic: topic, Keywords: keywords, TargetLength: length})
			if err != nil {
				return err
			}
			a, err := loadApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Start(cmd.Context(), uuid.NewString(), st)
			if err != nil {
				return err
			}
			return follow(cmd, a.engine, res, interactiveFor(cmd, interactive))
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "article topic (required)")
	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "target keyword (repeatable)")
	cmd.Flags().IntVarP(&length, "length", "l", 2000, "target length in words")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "answer each pause on the terminal until the run completes")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func resumeCmd(g *globalFlags) *cobra.Command {
	var (
		flags       responseFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Answer the pending pause of a run",
		Long: `Resume delivers one response to a suspended run. Approval pauses take
--approve or --reject; clarification pauses take --answer (repeatable) or --skip.
Without a response flag the pending pause is prompted for on the terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			cp, err := a.engine.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cp.Status == workflow.RunComplete {
				printComplete(cmd.OutOrStdout(), cp.State)
				return nil
			}

			resp, ok, err := flags.response(cp.Cursor.Awaiting)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if !ok {
				if resp, err = p.ask(cp.Cursor.Awaiting); err != nil {
					return err
				}
			}
			res, err := a.engine.Resume(cmd.Context(), args[0], resp)
			if err != nil {
				return err
			}
			if !interactive {
				p = nil
			}
			return follow(cmd, a.engine, res, p)
		},
	}
	cmd.Flags().BoolVar(&flags.approve, "approve", false, "approve the result under review")
	cmd.Flags().StringVar(&flags.reject, "reject", "", "reject the result under review with this feedback")
	cmd.Flags().StringArrayVar(&flags.answers, "answer", nil, "answer to the next clarification question (repeatable)")
	cmd.Flags().BoolVar(&flags.skip, "skip", false, "skip the clarification questions")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "keep prompting until the run completes")
	cmd.MarkFlagsMutuallyExclusive("approve", "reject", "answer", "skip")
	return cmd
}

func statusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show one run, or list all runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				cps, err := a.engine.Runs(cmd.Context())
				if err != nil {
					return err
				}
				printRuns(out, cps)
				return nil
			}
			cp, err := a.engine.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cp.Status == workflow.RunComplete {
				printComplete(out, cp.State)
				return nil
			}
			fmt.Fprintf(out, "run %s at %s (version %d)\n", cp.RunID, cp.Cursor.Stage, cp.Version)
			printSuspension(out, cp.Cursor.Awaiting)
			return nil
		},
	}
}

func interactiveFor(cmd *cobra.Command, interactive bool) *prompter {
	if !interactive {
		return nil
	}
	return newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

// follow reports res and, when p is set, keeps answering pauses until the
// run completes.
func follow(cmd *cobra.Command, engine *workflow.Engine, res workflow.Result, p *prompter) error {
	out := cmd.OutOrStdout()
	for {
		if res.Done() {
			printComplete(out, res.State)
			return nil
		}
		if p == nil {
			fmt.Fprintf(out, "run %s paused at %s\n", res.RunID, res.Stage)
			printSuspension(out, res.Suspension)
			fmt.Fprintf(out, "\nresume with: %s resume %s\n", appName, res.RunID)
			return nil
		}
		resp, err := p.ask(res.Suspension)
		if err != nil {
			return err
		}
		next, err := engine.Resume(cmd.Context(), res.RunID, resp)
		if err != nil {
			var stageErr *workflow.StageExecutionError
			if errors.As(err, &stageErr) {
				fmt.Fprintf(out, "%s resume %s to retry\n", appName, res.RunID)
			}
			return err
		}
		res = next
	}
}

// responseFlags is the non-interactive way to answer a pause.
type responseFlags struct {
	approve bool
	reject  string
	answers []string
	skip    bool
}

// response converts the flags into a Response for pending. ok is false when
// no response flag was given.
func (f responseFlags) response(pending *workflow.Suspension) (workflow.Response, bool, error) {
	if pending == nil {
		return workflow.Response{}, false, errors.New("run has nothing pending")
	}
	switch pending.Kind {
	case workflow.KindApproval:
		if len(f.answers) > 0 || f.skip {
			return workflow.Response{}, false, fmt.Errorf("run awaits approval of the %s stage; use --approve or --reject", pending.Stage)
		}
		switch {
		case f.approve:
			return workflow.Approve(), true, nil
		case f.reject != "":
			return workflow.Reject(f.reject), true, nil
		}
	case workflow.KindClarification:
		if f.approve || f.reject != "" {
			return workflow.Response{}, false, fmt.Errorf("run awaits clarification before the %s stage; use --answer or --skip", pending.Stage)
		}
		switch {
		case f.skip:
			return workflow.Skip(), true, nil
		case len(f.answers) > 0:
			return workflow.Answer(f.answers...), true, nil
		}
	}
	return workflow.Response{}, false, nil
}
