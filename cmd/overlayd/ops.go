package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jubileesolutions/overlay-backend/internal/http/middleware"
	"github.com/jubileesolutions/overlay-backend/internal/ingest"
	"github.com/jubileesolutions/overlay-backend/internal/repo"
	"github.com/jubileesolutions/overlay-backend/internal/services"
)

var (
	compileDryRun    bool
	compileVerbose   bool
	compileBatchSize int
	compileIDs       []string

	importTarget    ingest.Target
	importDryRun    bool
	importThreshold float64
	importActor     string

	tokenSubject string
	tokenTTL     time.Duration
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Run one compile pass and print the result as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close(db) }()
		gen, idx, err := openIndex(ctx)
		if err != nil {
			return err
		}
		c := newCompiler(db, gen, idx)
		opts := services.CompileOptions{DryRun: compileDryRun, Verbose: compileVerbose, BatchSize: compileBatchSize}

		var res *services.CompileResult
		if len(compileIDs) > 0 {
			res, err = c.CompileEntries(ctx, compileIDs, opts)
		} else {
			res, err = c.Compile(ctx, opts)
		}
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d entries failed to compile", len(res.Errors))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Create draft entries from a Markdown document (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close(db) }()

		im := ingest.NewImporter(services.NewOverlayService(db))
		if importThreshold > 0 {
			im.Threshold = importThreshold
		}
		ctx := services.WithActor(cmd.Context(), importActor)
		rep, err := im.Import(ctx, r, importTarget, importDryRun)
		if rep != nil {
			if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil && err == nil {
				err = perr
			}
		}
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(*cobra.Command, []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		log.Info().Str("driver", cfg.DB.Driver).Msg("schema is up to date")
		return repo.Close(db)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token for the permanent-delete endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Security.AdminJWTSecret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}
		tok, err := middleware.IssueAdminToken(cfg.Security.AdminJWTSecret, tokenSubject, tokenTTL, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	f := compileCmd.Flags()
	f.BoolVar(&compileDryRun, "dry-run", false, "report what would change without writing")
	f.BoolVar(&compileVerbose, "verbose", false, "include the per-entry action list")
	f.IntVar(&compileBatchSize, "batch-size", 0, "entries per embedding batch (default COMPILE_BATCH_SIZE)")
	f.StringSliceVar(&compileIDs, "ids", nil, "compile only these entry ids")

	f = importCmd.Flags()
	f.StringVar(&importTarget.Domain, "domain", "", "root domain, e.g. Abilities")
	f.StringVar(&importTarget.DomainKey, "domain-key", "", "scope key")
	f.StringVar(&importTarget.SubKey, "sub-key", "", "individual; empty imports into the shared tier")
	f.StringVar(&importTarget.Guardrails, "guardrails", "", "guardrail level for created entries (low|medium|high)")
	f.StringVar(&importTarget.Notes, "notes", "", "authoring notes stored on every created entry")
	f.BoolVar(&importDryRun, "dry-run", false, "report without creating entries")
	f.Float64Var(&importThreshold, "threshold", ingest.DefaultThreshold, "similarity at which a paragraph counts as a duplicate")
	f.StringVar(&importActor, "actor", "import", "actor recorded in the audit trail")
	_ = importCmd.MarkFlagRequired("domain")
	_ = importCmd.MarkFlagRequired("domain-key")

	f = tokenCmd.Flags()
	f.StringVar(&tokenSubject, "subject", "", "operator identity recorded as the audit actor")
	f.DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
