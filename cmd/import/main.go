// import loads roster exports from disk into the tracker database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	fxmodules "realm-tracker/internal/fx"
	"realm-tracker/internal/logger"
	"realm-tracker/internal/service"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	season := fs.StringP("season", "s", "", "season id attached to every imported snapshot")
	concurrency := fs.IntP("concurrency", "c", 0, "number of files parsed in parallel (default 4)")
	logLevel := fs.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: import [flags] <file|dir>...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	paths, err := service.CollectExports(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "import: no .xlsx or .xls files found")
		os.Exit(1)
	}

	opts := []fx.Option{fxmodules.CoreModule, fx.NopLogger}
	if *logLevel != "" {
		level, err := zerolog.ParseLevel(*logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "import: invalid log level %q\n", *logLevel)
			os.Exit(2)
		}
		opts = append(opts, fx.Decorate(func(zerolog.Logger) zerolog.Logger { return logger.SetLevel(level) }))
	}

	var importer *service.ImportService
	opts = append(opts, fx.Populate(&importer))

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	results, runErr := importer.ImportFiles(ctx, paths, *season, *concurrency)
	failed := printResults(results)

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", runErr)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printResults(results []service.ImportResult) int {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSNAPSHOT\tPLAYERS\tNAMES\tALLIANCES\tLEFT\tERROR")

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%v\n", res.Path, res.Err)
			continue
		}
		s := res.Summary
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t\n",
			res.Path,
			s.Snapshot.ID,
			s.PlayersProcessed,
			s.ChangesDetected.NameChanges,
			s.ChangesDetected.AllianceChanges,
			s.PlayersMarkedAsLeft,
		)
	}
	w.Flush()

	fmt.Printf("\n%d imported, %d failed\n", len(results)-failed, failed)
	return failed
}
