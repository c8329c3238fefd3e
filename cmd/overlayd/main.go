// Command overlayd serves and operates the overlay content backend.
//
//	@title						Overlay API
//	@version					1.0
//	@description				Authoring, inheritance resolution, and vector compilation for overlay content entries.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	AdminBearer
//	@in							header
//	@name						Authorization
//	@description				Bearer <admin JWT>
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/config"
	"github.com/jubileesolutions/overlay-backend/internal/embedding"
	"github.com/jubileesolutions/overlay-backend/internal/repo"
	"github.com/jubileesolutions/overlay-backend/internal/services"
	"github.com/jubileesolutions/overlay-backend/internal/sysutil"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

var (
	envFile string
	cfg     config.Config

	rootCmd = &cobra.Command{
		Use:           "overlayd",
		Short:         "Overlay content backend: authoring API, compiler, and import tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, "overlayd")
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, compileCmd, importCmd, migrateCmd, tokenCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
}

// openStore opens and migrates the relational store.
func openStore() (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = repo.Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openIndex builds the embedding provider and the vector index it feeds.
func openIndex(ctx context.Context) (embedding.Generator, vectorindex.Index, error) {
	gen, err := embedding.NewOpenAI(cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Vector.Provider {
	case "memory":
		log.Warn().Msg("using the in-memory vector index; vectors are lost on exit")
		return gen, vectorindex.NewMemory(gen.Dimension()), nil
	default:
		q, err := vectorindex.NewQdrant(cfg.Vector, gen.Dimension())
		if err != nil {
			return nil, nil, err
		}
		if err := q.EnsureCollection(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure collection %q: %w", cfg.Vector.Collection, err)
		}
		return gen, q, nil
	}
}

// newCompiler wires a compiler over db using the configured batch size.
func newCompiler(db *gorm.DB, gen embedding.Generator, idx vectorindex.Index) *services.Compiler {
	return services.NewCompiler(db, gen, idx, cfg.Compiler.BatchSize)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), sysutil.Version())
	},
}
