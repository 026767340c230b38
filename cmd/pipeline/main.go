package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/docentkit/docentkit-backend/internal/data"
	"github.com/docentkit/docentkit-backend/internal/data/repos"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/render"
	"github.com/docentkit/docentkit-backend/internal/observability"
	"github.com/docentkit/docentkit-backend/internal/platform/envutil"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
	"github.com/docentkit/docentkit-backend/internal/platform/openai"
	"github.com/docentkit/docentkit-backend/internal/realtime/bus"
)

func main() {
	var (
		protocolID     = flag.String("protocol", "", "force a content protocol id instead of auto-selection")
		skipGeneration = flag.Bool("skip-generation", false, "build deterministic scaffold kits without calling the model")
		autoRepair     = flag.Bool("repair", true, "attempt rule-based repair of validation errors")
		configPath     = flag.String("config", "", "optional YAML config file")
		outDir         = flag.String("out", "out", "directory for kit JSON and slide cards")
		renderSlides   = flag.Bool("render-slides", false, "render PNG title cards for slides without media")
		save           = flag.Bool("save", false, "persist built kits to the database")
		concurrency    = flag.Int("concurrency", 3, "max modules processed in parallel")
	)
	flag.Parse()

	log, err := logger.New(envutil.String("APP_ENV", "dev"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("no input files: usage: pipeline [flags] module.txt ...")
	}

	cfg, err := lesson.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("config load failed", "error", err.Error())
	}

	observability.Init()

	deps := lesson.Deps{Log: log}
	if !*skipGeneration {
		ai, err := openai.NewClient(log)
		if err != nil {
			log.Fatal("generation client unavailable", "error", err.Error())
		}
		deps.AI = ai
	}
	if envutil.Bool("PIPELINE_EVENTS_ENABLED", false) {
		pub, err := bus.NewPublisher(log)
		if err != nil {
			log.Warn("event bus unavailable, continuing without", "error", err.Error())
		} else {
			deps.Bus = pub
			defer pub.Close()
		}
	}

	var repo *repos.KitRepo
	if *save {
		db, err := data.Open(log)
		if err != nil {
			log.Fatal("database unavailable", "error", err.Error())
		}
		repo, err = repos.NewKitRepo(db, log)
		if err != nil {
			log.Fatal("kit repo init failed", "error", err.Error())
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("output dir create failed", "dir", *outDir, "error", err.Error())
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)
	for _, path := range files {
		path := path
		g.Go(func() error {
			return runModule(ctx, deps, cfg, repo, path, moduleOptions{
				protocolID:     *protocolID,
				skipGeneration: *skipGeneration,
				autoRepair:     *autoRepair,
				outDir:         *outDir,
				renderSlides:   *renderSlides,
			})
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal("pipeline run failed", "error", err.Error())
	}
	log.Info("all modules processed", "count", len(files))
}

type moduleOptions struct {
	protocolID     string
	skipGeneration bool
	autoRepair     bool
	outDir         string
	renderSlides   bool
}

func runModule(ctx context.Context, deps lesson.Deps, cfg lesson.Config, repo *repos.KitRepo, path string, opts moduleOptions) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	moduleID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	res, err := lesson.Run(ctx, deps, lesson.RunInput{
		ModuleID:       moduleID,
		RawText:        string(raw),
		ProtocolID:     opts.protocolID,
		SkipGeneration: opts.skipGeneration,
		AutoRepair:     opts.autoRepair,
		Config:         cfg,
	})
	for _, line := range res.Log {
		fmt.Printf("[%s] %s\n", moduleID, line)
	}
	if err != nil {
		return fmt.Errorf("module %s: %w", moduleID, err)
	}

	payload, err := res.Kit.Encode()
	if err != nil {
		return fmt.Errorf("module %s: encode kit: %w", moduleID, err)
	}
	outPath := filepath.Join(opts.outDir, moduleID+".kit.json")
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("module %s: write kit: %w", moduleID, err)
	}

	if opts.renderSlides {
		cards := render.SlideCards(deps.Log, *res.Kit, filepath.Join(opts.outDir, moduleID+"-slides"))
		if len(cards) > 0 {
			fmt.Printf("[%s] rendered %d slide card(s)\n", moduleID, len(cards))
		}
	}
	if repo != nil {
		if err := repo.Save(ctx, *res.Kit); err != nil {
			return fmt.Errorf("module %s: save kit: %w", moduleID, err)
		}
	}
	return nil
}
