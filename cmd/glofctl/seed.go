package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/glof-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/glof-risk-service/internal/adapter/sqlite"
	"github.com/couchcryptid/glof-risk-service/internal/domain"
	"github.com/couchcryptid/glof-risk-service/internal/mockdata"
)

// defaultStation keys every published reading. One key maps to one partition,
// which keeps the station's readings in timestamp order for the consumer.
const defaultStation = "glof-station-1"

type seedOptions struct {
	days    int
	seed    uint64
	now     string
	out     string
	dbPath  string
	kafka   bool
	brokers []string
	topic   string
	station string
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demonstration readings",
		Long: `Generate daily demonstration readings ending now: a warning scenario
today, two safe days before it and seasonal noise further back.

Readings can be written as JSON (--out), stored in SQLite (--db) or
published to the source topic (--kafka). At least one target is required.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	brokers := sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))
	topic := sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "glof-sensor-readings")

	f := cmd.Flags()
	f.IntVar(&opts.days, "days", 7, "number of days before today to generate")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one at random)")
	f.StringVar(&opts.now, "now", "", "end time as RFC 3339 (default: current time)")
	f.StringVar(&opts.out, "out", "", `write readings as a JSON array to this file ("-" for stdout)`)
	f.StringVar(&opts.dbPath, "db", "", "store readings in the SQLite database at this path")
	f.BoolVar(&opts.kafka, "kafka", false, "publish readings to the source topic")
	f.StringSliceVar(&opts.brokers, "brokers", brokers, "Kafka brokers (default from KAFKA_BROKERS)")
	f.StringVar(&opts.topic, "topic", topic, "Kafka topic to publish readings to (default from KAFKA_SOURCE_TOPIC)")
	f.StringVar(&opts.station, "station", defaultStation, "message key for every published reading")
	return cmd
}

func runSeed(ctx context.Context, stdout io.Writer, opts *seedOptions) error {
	if opts.out == "" && opts.dbPath == "" && !opts.kafka {
		return errors.New("no target: set --out, --db or --kafka")
	}
	if opts.days < 0 || opts.days > 3650 {
		return fmt.Errorf("--days must be between 0 and 3650, got %d", opts.days)
	}

	now := time.Now().UTC()
	if opts.now != "" {
		t, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return fmt.Errorf("parse --now: %w", err)
		}
		now = t
	}

	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	readings := mockdata.Generate(now, opts.days, rand.New(rand.NewPCG(seed, seed)))

	if opts.out != "" {
		if err := writeReadingsJSON(stdout, opts.out, readings); err != nil {
			return err
		}
	}
	if opts.dbPath != "" {
		if err := storeReadings(ctx, opts.dbPath, readings); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %d readings in %s\n", len(readings), opts.dbPath)
	}
	if opts.kafka {
		if opts.station == "" {
			return errors.New("--station must not be empty")
		}
		if err := publishReadings(ctx, opts.brokers, opts.topic, opts.station, readings); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "published %d readings to %s\n", len(readings), opts.topic)
	}
	return nil
}

func writeReadingsJSON(stdout io.Writer, path string, readings []domain.Reading) error {
	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal readings: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func storeReadings(ctx context.Context, path string, readings []domain.Reading) error {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, r := range readings {
		if err := store.SaveReading(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func publishReadings(ctx context.Context, brokers []string, topic, station string, readings []domain.Reading) error {
	events, err := readingEvents(station, readings)
	if err != nil {
		return err
	}

	writer := kafkaadapter.NewWriter(brokers, topic, slog.Default())
	defer writer.Close()
	return writer.LoadBatch(ctx, events)
}

// readingEvents encodes readings as source-topic messages, all keyed by station.
func readingEvents(station string, readings []domain.Reading) ([]domain.OutputEvent, error) {
	events := make([]domain.OutputEvent, len(readings))
	for i, r := range readings {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal reading: %w", err)
		}
		events[i] = domain.OutputEvent{
			Key:   []byte(station),
			Value: data,
		}
	}
	return events, nil
}
