package commands

import (
	"io"
	"log"
	"os"

	"pcbuilder/internal/config"
	"pcbuilder/internal/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed, color.Bold)
)

// env carries what every subcommand needs after flag parsing.
type env struct {
	cfg     *config.Config
	dbURL   string
	verbose bool
}

func (e *env) openDB() (*gorm.DB, error) {
	dsn := e.dbURL
	if dsn == "" {
		dsn = e.cfg.DatabaseURL
	}
	return database.Initialize(dsn, e.verbose)
}

func (e *env) logger(cmd *cobra.Command, prefix string) *log.Logger {
	var w io.Writer = io.Discard
	if e.verbose {
		w = cmd.ErrOrStderr()
	}
	return log.New(w, prefix, log.LstdFlags)
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "pcbuild",
		Short: "Recommend PC builds from the parts catalog",
		Long: `pcbuild picks a compatible set of PC parts that fits a budget,
seeds the parts catalog, and checks saved builds for price drops.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			e.cfg = config.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&e.dbURL, "db", "", "database DSN (defaults to DATABASE_URL; sqlite://path for a local file)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log SQL and allocation steps to stderr")

	root.AddCommand(newRecommendCmd(e), newSeedCmd(e), newCheckPricesCmd(e))
	return root
}

// Execute runs the CLI and prints any error in red.
func Execute(version string) error {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
