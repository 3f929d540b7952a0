package runcmder

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/config"
	"github.com/papercomputeco/reckon/pkg/dotdir"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/eventstream"
	"github.com/papercomputeco/reckon/pkg/eventstream/kafka"
	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/journal/inmemory"
	"github.com/papercomputeco/reckon/pkg/journal/postgres"
	"github.com/papercomputeco/reckon/pkg/journal/sqlite"
	"github.com/papercomputeco/reckon/pkg/sse"
)

const journalFile = "journal.db"

// newJournalDriver opens the configured journal. It returns a nil driver
// when journaling is off, along with a description of where entries go.
func (c *runCommander) newJournalDriver(ctx context.Context, cfg *config.Config) (journal.Driver, string, error) {
	switch cfg.Journal.Driver {
	case config.JournalMemory:
		c.logger.Info("using in-memory journal")
		return inmemory.NewDriver(), "memory", nil

	case config.JournalSQLite:
		path := cfg.Journal.SQLitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().Path(c.configDir, journalFile)
			if err != nil {
				return nil, "", fmt.Errorf("resolving journal path: %w", err)
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite journal: %w", err)
		}
		c.logger.Info("using SQLite journal", zap.String("path", path))
		return driver, path, nil

	case config.JournalPostgres:
		driver, err := postgres.NewDriver(ctx, cfg.Journal.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to PostgreSQL journal: %w", err)
		}
		c.logger.Info("using PostgreSQL journal")
		return driver, "postgres", nil

	default:
		return nil, "", nil
	}
}

// newBridge starts publishing lifecycle events when a publisher is
// configured.
func (c *runCommander) newBridge(cfg *config.Config, bus *events.Emitter) (*eventstream.Bridge, error) {
	if cfg.Stream.Publisher != config.PublisherKafka {
		return nil, nil
	}

	publisher, err := kafka.NewPublisher(&kafka.Config{
		Brokers: cfg.Brokers(),
		Topic:   cfg.Stream.Topic,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	bridge, err := eventstream.NewBridge(&eventstream.BridgeConfig{
		Publisher: publisher,
		Emitter:   bus,
		Source:    source(),
		QueueSize: uint(cfg.Stream.QueueSize),
		Logger:    c.logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	c.logger.Info("publishing lifecycle events",
		zap.Strings("brokers", cfg.Brokers()),
		zap.String("topic", cfg.Stream.Topic),
	)
	return bridge, nil
}

// newLiveStream bridges lifecycle events to the API's /v1/events stream.
func (c *runCommander) newLiveStream(bus *events.Emitter) (*sse.Broker, *eventstream.Bridge, error) {
	broker := sse.NewBroker(0)
	bridge, err := eventstream.NewBridge(&eventstream.BridgeConfig{
		Publisher: sse.NewPublisher(broker),
		Emitter:   bus,
		Source:    source(),
		Logger:    c.logger,
	})
	if err != nil {
		broker.Close()
		return nil, nil, err
	}
	return broker, bridge, nil
}

func source() eventstream.EventSource {
	host, _ := os.Hostname()
	return eventstream.EventSource{Instance: host}
}
