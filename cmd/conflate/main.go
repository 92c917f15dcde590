package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	conflate "github.com/CTPSSTAFF/conflate-tmcs-and-massdot-expressways"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	configFileName = flag.String("config", "conflate.yaml", "Filename of YAML run configuration")
	routeID        = flag.String("route", "", "Single route to process, e.g. 'I95 NB'. Overrides list of routes from configuration")
	routesFileName = flag.String("routes", "", "Filename of routes list (one route per line). Overrides 'routes_file' of configuration")
	segmentsFile   = flag.String("segments", "", "Filename of TMC identifiers list. Overrides 'segments_file' of configuration")
	outDir         = flag.String("out", "", "Output directory. Overrides 'output_dir' of configuration")
	debug          = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var zapLogger *zap.Logger
	var err error
	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't initialize zap logger")
	}
	return zapLogger.Sugar(), nil
}

func run() error {
	cfg, err := conflate.LoadRunConfig(*configFileName)
	if err != nil {
		return err
	}
	// Flags override configuration
	if *routesFileName != "" {
		cfg.RoutesFile = *routesFileName
	}
	if *segmentsFile != "" {
		cfg.SegmentsFile = *segmentsFile
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	cfg.Debug = cfg.Debug || *debug

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	routeIDs := conflate.DefaultRouteList
	switch {
	case *routeID != "":
		routeIDs = []string{strings.TrimSpace(*routeID)}
	case cfg.RoutesFile != "":
		routeIDs, err = conflate.LoadRouteList(cfg.RoutesFile)
		if err != nil {
			return errors.Wrap(err, "Can't load routes list")
		}
	}
	// Nothing is written until every route is known to be valid
	if err := conflate.ValidateRouteIDs(routeIDs); err != nil {
		return err
	}

	var segmentIDs []string
	if cfg.SegmentsFile != "" {
		segmentIDs, err = conflate.LoadSegmentList(cfg.SegmentsFile)
		if err != nil {
			return errors.Wrap(err, "Can't load segments list")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sources, err := conflate.OpenSources(cfg, conflate.WithSourceLogger(logger))
	if err != nil {
		return err
	}
	defer sources.Close()

	var towns conflate.TownNames
	if cfg.TownNames != "" {
		towns, err = conflate.LoadTownNamesCSV(cfg.TownNames)
		if err != nil {
			return errors.Wrap(err, "Can't load town names")
		}
	} else {
		names, found, err := sources.TownNames(ctx)
		if err != nil {
			return errors.Wrap(err, "Can't load town names")
		}
		if !found {
			return errors.New("Town names are required: set 'town_names' or use 'sqlite' town source")
		}
		towns = names
	}

	pipeline, err := conflate.NewPipeline(
		sources.Route,
		sources.Features,
		conflate.WithLogger(logger),
		conflate.WithTownNames(towns),
		conflate.WithTolerances(cfg.Tolerances()),
		conflate.WithSegmentList(segmentIDs),
		conflate.WithActiveOnly(!cfg.IncludeRetired),
		conflate.WithDropEmptySegmentKey(cfg.DropEmptySegmentKey),
	)
	if err != nil {
		return err
	}
	logger.Debug(pipeline)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "Can't create output directory")
	}
	return pipeline.RunBatch(ctx, routeIDs, func(result *conflate.RouteResult) error {
		return conflate.ExportResult(cfg, result)
	})
}
