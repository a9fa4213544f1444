// Command lumicore is the operator terminal for the document-cleaning
// workflow: fetch a batch, edit normalized fields inline, validate, and
// submit cleaned records for scoring.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/cache"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/config"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/logging"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/retry"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/session"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/store"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/ui"
)

var cfgFile string

func main() {
	v := viper.New()

	root := &cobra.Command{
		Use:   "lumicore",
		Short: "Operator terminal for the Lumicore data-cleaning workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.lumicore/config.yaml)")
	root.Flags().String("api-url", "", "base URL of the cleaning backend")
	root.Flags().String("batch", "", "batch id to load at startup")
	root.Flags().String("candidate", "", "candidate name sent with submissions")
	v.BindPFlag("api_url", root.Flags().Lookup("api-url"))
	v.BindPFlag("default_batch", root.Flags().Lookup("batch"))
	v.BindPFlag("candidate", root.Flags().Lookup("candidate"))

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, err := charmlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = charmlog.InfoLevel
	}
	if err := logging.Init(cfg.LogDir, level); err != nil {
		return err
	}
	defer logging.Close()
	logging.Info("lumicore starting", "api_url", cfg.APIURL, "batch", cfg.DefaultBatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.APIURL, cfg.HTTPTimeout)
	batches := cache.New(cfg.CacheTTL)
	sess := session.New()

	var st *store.Store
	if cfg.DBPath != "" {
		st, err = store.Open(cfg.DBPath)
		if err != nil {
			// The audit log is a convenience; run without it.
			logging.Warn("audit log unavailable", "path", cfg.DBPath, "err", err)
			st = nil
		} else {
			defer st.Close()
		}
	}

	appCfg := ui.AppConfig{
		Session:      sess,
		Candidate:    cfg.Candidate,
		DefaultBatch: cfg.DefaultBatch,
		Policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Base:        cfg.Retry.Base,
			Cap:         cfg.Retry.Cap,
			HintMargin:  cfg.Retry.HintMargin,
		},

		FetchBatch: func(batchID string, attempt int, invalidate bool) tea.Cmd {
			return func() tea.Msg {
				if invalidate {
					batches.Invalidate(batchID)
				}
				b, err := batches.Fetch(ctx, batchID, func(ctx context.Context) (*api.Batch, error) {
					return client.FetchBatch(ctx, batchID)
				})
				return ui.BatchLoaded{BatchID: batchID, Attempt: attempt, Batch: b, Err: err}
			}
		},

		Validate: func(gen uint64, records []api.Record) tea.Cmd {
			return func() tea.Msg {
				resp, err := client.Validate(ctx, records)
				return ui.ValidateDone{Gen: gen, Resp: resp, Err: err}
			}
		},

		Submit: func(gen uint64, req api.SubmitRequest) tea.Cmd {
			return func() tea.Msg {
				resp, err := client.Submit(ctx, req)
				return ui.SubmitDone{Gen: gen, BatchID: req.BatchID, Req: req, Resp: resp, Err: err}
			}
		},

		InvalidateBatch: batches.Invalidate,
	}

	if st != nil {
		appCfg.LoadScore = func(batchID string) tea.Cmd {
			return func() tea.Msg {
				sub, found, err := st.LastSubmission(batchID)
				return ui.ScoreHistoryLoaded{BatchID: batchID, Sub: sub, Found: found, Err: err}
			}
		}
		appCfg.RecordSubmission = func(req api.SubmitRequest, resp *api.SubmitResponse) tea.Cmd {
			return func() tea.Msg {
				_, err := st.SaveSubmission(store.Submission{
					BatchID:   req.BatchID,
					Candidate: req.CandidateName,
					Score:     resp.ScoreResponse.Score,
					Message:   resp.ScoreResponse.Message,
					Payload:   string(resp.Payload),
				})
				if err != nil {
					logging.Error("audit log write failed", "batch", req.BatchID, "err", err)
				}
				return ui.SubmissionRecorded{Err: err}
			}
		}
	}

	program := tea.NewProgram(ui.NewApp(appCfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
