package kafka

import "time"

// ProducerConfig configures the Kafka producer
type ProducerConfig struct {
	Brokers []string

	// CatalogTopic receives one product.merged event per merged product.
	CatalogTopic string

	// RunTopic receives one run.finished event per import run.
	RunTopic string

	BatchSize    int
	BatchTimeout time.Duration

	// RequiredAcks: 0 = no acks, 1 = leader only, -1 = all replicas
	RequiredAcks int

	Async        bool
	MaxAttempts  int
	WriteTimeout time.Duration

	// Compression is one of none, gzip, snappy, lz4, zstd
	Compression string
}

func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		CatalogTopic: "catalog-events",
		RunTopic:     "import-runs",
		BatchSize:    100,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: 1,
		Async:        false,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Compression:  "snappy",
	}
}
