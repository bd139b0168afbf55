package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/app"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/pkg/logger"
)

type appKey struct{}

func typeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "type",
		Aliases: []string{"t"},
		Usage:   "Record type (maestro, demanda, movimientos, produccion, stock, centro, proceso); empty detects it",
	}
}

func memoryFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "memory",
		Usage: "Keep planning data in memory instead of postgres",
	}
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "pcp",
		Usage: "Ingest planning workbooks, sync ledgers and project stock",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level",
				Value:   cfg.Server.LogLevel,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "Print the detected record type and column mapping of workbooks",
				ArgsUsage: "FILE...",
				Flags:     []cli.Flag{typeFlag(), &cli.StringFlag{Name: "sheet", Usage: "Sheet name, first sheet when empty"}},
				Action:    func(c *cli.Context) error { return runDetect(c, cfg) },
			},
			{
				Name:      "ingest",
				Usage:     "Ingest workbooks, masters first",
				ArgsUsage: "FILE|DIR...",
				Flags:     []cli.Flag{typeFlag(), memoryFlag()},
				Before:    withApp(cfg, app.Options{}),
				After:     closeApp,
				Action:    runIngest,
			},
			{
				Name:      "sync",
				Usage:     "Upload the new rows of a movement or production export to the remote database",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					typeFlag(),
					&cli.TimestampFlag{Name: "since", Layout: domain.DateLayout, Usage: "Skip rows dated before YYYY-MM-DD"},
					&cli.BoolFlag{Name: "dry-run", Usage: "Only report what would be uploaded"},
					&cli.StringFlag{Name: "remote-dsn", Usage: "Remote database DSN", EnvVars: []string{"REMOTE_DSN"}},
				},
				Before: func(c *cli.Context) error {
					if dsn := c.String("remote-dsn"); dsn != "" {
						cfg.Remote.DSN = dsn
					}
					if cfg.Remote.DSN == "" {
						return fmt.Errorf("remote DSN is required (--remote-dsn or REMOTE_DSN)")
					}
					return withApp(cfg, app.Options{InMemory: true, WithRemote: true})(c)
				},
				After:  closeApp,
				Action: runSync,
			},
			{
				Name:      "project",
				Usage:     "Print the daily stock projection of a SKU",
				ArgsUsage: "SKU",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "horizon", Value: cfg.Projection.HorizonDays, Usage: "Days to project"},
					&cli.Float64Flag{Name: "safety-stock", Usage: "Buffer used to classify balances"},
					&cli.StringFlag{Name: "warehouses", Usage: "Comma separated \"centro - almacen\" filter"},
				},
				Before: withApp(cfg, app.Options{}),
				After:  closeApp,
				Action: runProject,
			},
			{
				Name:   "alerts",
				Usage:  "Print the stock alerts of every SKU",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "horizon", Value: cfg.Projection.HorizonDays, Usage: "Days to scan"}},
				Before: withApp(cfg, app.Options{}),
				After:  closeApp,
				Action: runAlerts,
			},
			{
				Name:      "safety-stock",
				Usage:     "Print buffer profiles, for one SKU or all",
				ArgsUsage: "[SKU]",
				Before:    withApp(cfg, app.Options{}),
				After:     closeApp,
				Action:    runSafetyStock,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP API",
				Flags: []cli.Flag{
					memoryFlag(),
					&cli.StringFlag{Name: "port", Value: cfg.Server.Port, EnvVars: []string{"SERVER_PORT"}},
				},
				Before: func(c *cli.Context) error {
					cfg.Server.Port = c.String("port")
					return withApp(cfg, app.Options{WithRemote: true, WithDrive: true})(c)
				},
				After: closeApp,
				Action: func(c *cli.Context) error {
					return appFrom(c).Serve(c.Context)
				},
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("pcp failed")
	}
}

// withApp wires the services before a command. --memory overrides opts.
func withApp(cfg *config.Config, opts app.Options) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.Bool("memory") {
			opts.InMemory = true
		}
		a, err := app.New(c.Context, cfg, opts)
		if err != nil {
			return err
		}
		c.Context = context.WithValue(c.Context, appKey{}, a)
		return nil
	}
}

func closeApp(c *cli.Context) error {
	if a := appFrom(c); a != nil {
		a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	a, _ := c.Context.Value(appKey{}).(*app.App)
	return a
}

func recordType(c *cli.Context) (domain.RecordType, error) {
	raw := strings.TrimSpace(c.String("type"))
	if raw == "" {
		return domain.RecordUnknown, nil
	}
	return domain.ParseRecordType(raw)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDetect(c *cli.Context, cfg *config.Config) error {
	t, err := recordType(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	parser := ingest.NewParser(nil, cfg.Ingest, cfg.App.TempDir)
	for _, path := range c.Args().Slice() {
		res, err := parser.ParseFile(path, t, c.String("sheet"))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out := map[string]any{
			"file":       filepath.Base(path),
			"sheet":      res.Sheet,
			"file_type":  res.Type,
			"header_row": res.HeaderRow,
			"mapped":     res.Mapped,
			"rows":       res.Total,
			"valid":      res.Batch.Len(),
			"warnings":   res.Warnings,
		}
		if res.Detection != nil {
			out["detected_by"] = res.Detection.Method
			out["scores"] = res.Detection.Scores
		}
		if err := printJSON(out); err != nil {
			return err
		}
	}
	return nil
}

// expandPaths replaces directories with the workbooks they contain.
func expandPaths(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".xlsx", ".xlsm", ".xls", ".csv":
				if !e.IsDir() && !strings.HasPrefix(e.Name(), "~$") {
					files = append(files, filepath.Join(arg, e.Name()))
				}
			}
		}
	}
	return files, nil
}

func runIngest(c *cli.Context) error {
	t, err := recordType(c)
	if err != nil {
		return err
	}
	files, err := expandPaths(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no workbooks to ingest")
	}

	a := appFrom(c)
	if t != domain.RecordUnknown {
		for _, f := range files {
			report, err := a.Ingestion.IngestFile(c.Context, f, t)
			if perr := printJSON(report); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	run, err := a.Orchestrator.Run(c.Context, files)
	if err != nil {
		return err
	}
	if err := printJSON(run); err != nil {
		return err
	}
	if run.ErrorMessage != "" {
		return fmt.Errorf("ingestion run %s: %s", run.ID, run.ErrorMessage)
	}
	return nil
}

func runSync(c *cli.Context) error {
	t, err := recordType(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file is required")
	}

	opts := dedup.SyncOptions{DryRun: c.Bool("dry-run")}
	if since := c.Timestamp("since"); since != nil {
		opts.Since = domain.DayKey(*since)
	}

	res, err := appFrom(c).Sync.SyncFile(c.Context, c.Args().First(), t, opts)
	if res != nil {
		if perr := printJSON(res); perr != nil {
			return perr
		}
	}
	return err
}

func runProject(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("a SKU is required")
	}
	req := projection.Request{
		SKU:         c.Args().First(),
		HorizonDays: c.Int("horizon"),
		Buffer:      c.Float64("safety-stock"),
	}
	if c.IsSet("warehouses") {
		req.Warehouses = projection.ParseWarehouses(c.String("warehouses"))
	}

	points, err := appFrom(c).Planning.Project(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(points)
}

func runAlerts(c *cli.Context) error {
	start := time.Now()
	alerts, err := appFrom(c).Planning.Alerts(c.Context, c.Int("horizon"))
	if err != nil {
		return err
	}
	logger.Log.Info().Int("alerts", len(alerts)).Dur("took", time.Since(start)).Msg("Alert scan finished")
	return printJSON(alerts)
}

func runSafetyStock(c *cli.Context) error {
	planning := appFrom(c).Planning
	if c.NArg() == 0 {
		profiles, err := planning.SafetyStocks(c.Context)
		if err != nil {
			return err
		}
		return printJSON(profiles)
	}

	profile, ok, err := planning.SafetyStock(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no usage history for %s", c.Args().First())
	}
	return printJSON(profile)
}
