// Package main provides the nnet CLI: it trains a sigmoid network on MNIST
// style data with mini-batch SGD and reports held-out accuracy per epoch.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/born-ml/nnet/internal/config"
	"github.com/born-ml/nnet/internal/dataset"
	"github.com/born-ml/nnet/internal/network"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("nnet %s\n", version)
		return
	}

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("nnet: %v", err)
	}
}

// run executes one training run with the given command-line arguments.
// Epoch results go to stdout, logs to stderr.
func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ds, err := loadData(cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("label histogram", "counts", ds.Histogram())

	classes := cfg.Layers[len(cfg.Layers)-1]
	if err := ds.ValidateLabels(classes); err != nil {
		return err
	}
	if ds.Features() != cfg.Layers[0] {
		return fmt.Errorf("samples have %d values, input layer expects %d", ds.Features(), cfg.Layers[0])
	}

	fmt.Fprintln(stdout, cfg.Topology())

	net, err := network.New(network.Config{
		Sizes:         cfg.Layers,
		Eta:           cfg.Eta,
		Epochs:        cfg.Epochs,
		MiniBatchSize: cfg.MiniBatchSize,
		Momentum:      cfg.Momentum,
		Seed:          cfg.Seed,
		Workers:       cfg.ResolveWorkers(),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create network: %w", err)
	}
	defer net.Release()
	net.RandomInit(cfg.Variance)

	train, test, err := ds.Partition(cfg.HeldOut)
	if err != nil {
		return err
	}
	logger.Info("training",
		"train", train.Len(),
		"test", test.Len(),
		"batches", network.BatchCount(train.Len(), cfg.MiniBatchSize),
		"workers", net.Workers())

	logReporter := network.NewLogReporter(logger)
	net.SGD(train, test, network.ReporterFunc(func(epoch, correct, total int) {
		fmt.Fprintf(stdout, "Epoch %d complete, %d/%d correct.\n", epoch, correct, total)
		logReporter.EpochComplete(epoch, correct, total)
	}))

	return nil
}

// loadConfig resolves defaults, the -config file, NNET_* variables and
// explicitly set flags, in that order.
func loadConfig(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("nnet", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfgPath := fs.String("config", "", "Path to YAML config")
	images := fs.String("images", "", "IDX image file")
	labels := fs.String("labels", "", "IDX label file")
	csvFile := fs.String("csv", "", "CSV training file, replaces -images/-labels")
	layers := fs.String("layers", "", "Layer sizes, e.g. 784,30,10")
	eta := fs.Float64("eta", 0, "Learning rate")
	momentum := fs.Float64("momentum", 0, "SGD momentum")
	epochs := fs.Int("epochs", 0, "Number of training epochs")
	batch := fs.Int("batch", 0, "Mini-batch size")
	variance := fs.Float64("variance", 0, "Variance of the initial weights")
	heldOut := fs.Int("held-out", 0, "Samples held out for evaluation")
	seed := fs.Uint64("seed", 0, "PRNG seed")
	workers := fs.Int("workers", 0, "Gradient workers (0 = physical cores)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if _, err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	var o config.Overrides
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "images":
			o.ImagesFile = images
		case "labels":
			o.LabelsFile = labels
		case "csv":
			o.CSVFile = csvFile
		case "layers":
			o.Layers, flagErr = config.ParseLayers(*layers)
		case "eta":
			o.Eta = eta
		case "momentum":
			o.Momentum = momentum
		case "epochs":
			o.Epochs = epochs
		case "batch":
			o.MiniBatchSize = batch
		case "variance":
			o.Variance = variance
		case "held-out":
			o.HeldOut = heldOut
		case "seed":
			o.Seed = seed
		case "workers":
			o.Workers = workers
		case "log-level":
			o.LogLevel = logLevel
		}
	})
	if flagErr != nil {
		return nil, fmt.Errorf("-layers: %w", flagErr)
	}
	cfg.ApplyOverrides(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadData(cfg *config.Config, logger *slog.Logger) (*dataset.Dataset, error) {
	if cfg.CSVFile != "" {
		ds, err := dataset.LoadCSV(cfg.CSVFile)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.CSVFile, err)
		}
		logger.Info("samples loaded", "path", cfg.CSVFile, "samples", ds.Len(), "features", ds.Features())
		return ds, nil
	}
	return dataset.LoadIDX(cfg.ImagesFile, cfg.LabelsFile, logger)
}
