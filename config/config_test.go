package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "clover", cfg.AppName)
	assert.Equal(t, "data/feed.txt", cfg.FeedPath)
	assert.Equal(t, 50000, cfg.FeedChunkSize)
	assert.Equal(t, 30.0, cfg.MarkupPercent)
	assert.Equal(t, 1000, cfg.InvalidRowTraceLimit)
	assert.Equal(t, time.Duration(0), cfg.ScheduleInterval)
	assert.Equal(t, 24*time.Hour, cfg.RedisIdentityTTL)
	assert.Equal(t, "catalog-events", cfg.KafkaOutputTopic)
	assert.Equal(t, "import-runs", cfg.KafkaRunTopic)
	assert.False(t, cfg.RunOnStartup)
	assert.Equal(t, rune(0), cfg.FeedDelimiterRune())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_CHUNK_SIZE", "10")
	t.Setenv("MARKUP_PERCENT", "12.5")
	t.Setenv("SCHEDULE_INTERVAL", "1h")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.FeedChunkSize)
	assert.Equal(t, 12.5, cfg.MarkupPercent)
	assert.Equal(t, time.Hour, cfg.ScheduleInterval)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "chunk size", key: "FEED_CHUNK_SIZE", value: "0"},
		{name: "log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "delimiter", key: "FEED_DELIMITER", value: ";;"},
		{name: "compression", key: "KAFKA_COMPRESSION", value: "brotli"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("testdata/does-not-exist.env")
			assert.Error(t, err)
		})
	}
}

func TestFeedDelimiterRune(t *testing.T) {
	tests := []struct {
		value string
		want  rune
	}{
		{value: "", want: 0},
		{value: ",", want: ','},
		{value: "|", want: '|'},
		{value: `\t`, want: '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := &Config{FeedDelimiter: tt.value}
			assert.Equal(t, tt.want, cfg.FeedDelimiterRune())
		})
	}
}
