package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"permitleads_backend/internal/archive"
	"permitleads_backend/internal/crawler"
	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads"
	"permitleads_backend/internal/leads/address"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/scoring"
	"permitleads_backend/internal/maps"
	"permitleads_backend/internal/scheduler"
	"permitleads_backend/internal/sources"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"
)

const dateLayout = "2006-01-02"

type rootOptions struct {
	jurisdictionFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "leadctl",
		Short:         "Permit lead pipeline operator tool",
		Long:          `Inspect address parsing and scoring, ingest lead files and run crawls against the lead database`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultFile := os.Getenv("JURISDICTION_FILE")
	if defaultFile == "" {
		defaultFile = "jurisdiction.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&opts.jurisdictionFile, "jurisdiction", defaultFile, "jurisdiction rules file")

	rootCmd.AddCommand(createParseCmd(opts))
	rootCmd.AddCommand(createKeyCmd())
	rootCmd.AddCommand(createScoreCmd(opts))
	rootCmd.AddCommand(createIngestCmd(opts))
	rootCmd.AddCommand(createCrawlCmd(opts))

	return rootCmd
}

type parseOutput struct {
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	CanonicalKey string `json:"canonicalKey"`
	GeocodeQuery string `json:"geocodeQuery,omitempty"`
}

// createParseCmd shows how a free-text address is split and keyed
func createParseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [address]",
		Short: "Parse a free-text address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := config.LoadJurisdiction(opts.jurisdictionFile)
			if err != nil {
				return err
			}

			normalizer := ingest.NewJurisdictionNormalizer(j)
			raw := domain.RawLeadInput{RawAddress: args[0]}
			addr := normalizer.Resolve(raw)
			query, _ := normalizer.GeocodeQuery(raw)

			return writeJSON(cmd.OutOrStdout(), parseOutput{
				Street:       addr.Street,
				City:         addr.City,
				State:        addr.State,
				Zip:          addr.Zip,
				CanonicalKey: addr.Key(),
				GeocodeQuery: query,
			})
		},
	}
}

func createKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key [street] [city] [zip]",
		Short: "Print the canonical key for a structured address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), address.BuildKey(args[0], args[1], args[2]))
			return err
		},
	}
}

type scoreFlags struct {
	lotAcres  float64
	estValue  float64
	yearBuilt int
	issueDate string
	status    string
	at        string
}

// createScoreCmd evaluates a score at an arbitrary instant so operators can
// see how stale a stored score is
func createScoreCmd(opts *rootOptions) *cobra.Command {
	flags := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Evaluate the lead score for a set of signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := config.LoadJurisdiction(opts.jurisdictionFile)
			if err != nil {
				return err
			}

			at := time.Now().UTC()
			if flags.at != "" {
				if at, err = parseInstant(flags.at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			var sig scoring.Signals
			if cmd.Flags().Changed("lot-acres") {
				sig.LotAcres = &flags.lotAcres
			}
			if cmd.Flags().Changed("est-value") {
				sig.EstValue = &flags.estValue
			}
			if cmd.Flags().Changed("year-built") {
				sig.YearBuilt = &flags.yearBuilt
			}
			if flags.issueDate != "" {
				issued, err := time.Parse(dateLayout, flags.issueDate)
				if err != nil {
					return fmt.Errorf("--issue-date must be YYYY-MM-DD")
				}
				sig.IssueDate = &issued
			}
			if flags.status != "" {
				sig.Status = &flags.status
			}

			result := scoring.New(j.Scoring, time.Now).Evaluate(sig, at)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Float64Var(&flags.lotAcres, "lot-acres", 0, "lot size in acres")
	cmd.Flags().Float64Var(&flags.estValue, "est-value", 0, "estimated value in dollars")
	cmd.Flags().IntVar(&flags.yearBuilt, "year-built", 0, "year the structure was built")
	cmd.Flags().StringVar(&flags.issueDate, "issue-date", "", "permit issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.status, "status", "", "permit status")
	cmd.Flags().StringVar(&flags.at, "at", "", "evaluation instant (YYYY-MM-DD or RFC3339), default now")

	return cmd
}

func createIngestCmd(opts *rootOptions) *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a JSON array of lead records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var items []json.RawMessage
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("%s must contain a JSON array: %w", args[0], err)
			}

			env, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer env.close()

			result := env.leads.IngestService().Ingest(cmd.Context(), ingest.Batch{
				Channel: channel,
				Records: ingest.DecodeRecords(env.val, items, nil),
				Raw:     data,
			})
			env.bus.Wait()
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "cli", "channel recorded on the batch")
	return cmd
}

func createCrawlCmd(opts *rootOptions) *cobra.Command {
	var sourceID string
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every active source, or one with --source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uuid.UUID
			if sourceID != "" {
				parsed, err := uuid.Parse(sourceID)
				if err != nil {
					return fmt.Errorf("--source must be a source id")
				}
				id = parsed
			}

			if enqueue {
				return enqueueCrawl(cmd, id)
			}

			env, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer env.close()

			runner := crawler.NewRunner(env.sources.Service(), crawler.NewFirecrawl(env.cfg), env.leads.IngestService(), env.bus, env.log, crawler.RunnerConfig{
				SourceTimeout: env.cfg.GetCrawlSourceTimeout(),
				Parallelism:   env.cfg.GetCrawlParallelism(),
			})

			var out any
			if id != uuid.Nil {
				out, err = runner.RunOne(cmd.Context(), id)
			} else {
				out, err = runner.RunAll(cmd.Context())
			}
			env.bus.Wait()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&sourceID, "source", "", "crawl only this source id")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "hand the crawl to the scheduler worker instead of running it here")
	return cmd
}

func enqueueCrawl(cmd *cobra.Command, id uuid.UUID) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if id != uuid.Nil {
		err = client.EnqueueCrawlSource(cmd.Context(), id)
	} else {
		err = client.EnqueueCrawlAll(cmd.Context())
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "crawl enqueued")
	return err
}

// environment is the database-backed wiring shared by ingest and crawl.
type environment struct {
	cfg     *config.Config
	log     *logger.Logger
	val     *validator.Validator
	bus     *events.InMemoryBus
	leads   *leads.Module
	sources *sources.Module
	close   func()
}

func connect(ctx context.Context, opts *rootOptions) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	j, err := config.LoadJurisdiction(opts.jurisdictionFile)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Env)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	bus := events.NewInMemoryBus(log)
	archive.Setup(ctx, cfg, bus, log)

	geocoder, closeCache := maps.Setup(cfg, log)
	val := validator.New()
	deps := leads.Dependencies{
		DB:           pool,
		Health:       db.NewPoolAdapter(pool),
		EventBus:     bus,
		Validator:    val,
		Jurisdiction: j,
		Logger:       log,
	}
	if geocoder != nil {
		deps.Geocoder = geocoder
	}

	return &environment{
		cfg:     cfg,
		log:     log,
		val:     val,
		bus:     bus,
		leads:   leads.NewModule(deps),
		sources: sources.NewModule(pool, val, log),
		close: func() {
			if closeCache != nil {
				closeCache()
			}
			pool.Close()
		},
	}, nil
}

func parseInstant(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", value)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
