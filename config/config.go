package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Load reads a .env file if one is present, then the environment, and
// validates the result.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Config holds the configuration for the sequencer process.
type Config struct {
	Log        LogConfig        `envPrefix:"LOG_"`
	Input      InputLogConfig   `envPrefix:"INPUT_LOG_"`
	Output     OutputLogConfig  `envPrefix:"OUTPUT_LOG_"`
	Checkpoint CheckpointConfig `envPrefix:"CHECKPOINT_"`
	Sequencer  SequencerConfig  `envPrefix:"SEQUENCER_"`
	GRPC       GRPCConfig       `envPrefix:"GRPC_"`
	Broadcast  BroadcastConfig  `envPrefix:"BROADCAST_"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9100"`
}

type LogConfig struct {
	Level    string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Encoding string `env:"ENCODING" envDefault:"json" validate:"oneof=json console"`
}

type InputLogConfig struct {
	Dir             string        `env:"DIR" envDefault:"./data/input" validate:"required"`
	SegmentSize     int64         `env:"SEGMENT_SIZE" envDefault:"67108864" validate:"gte=0"`
	SegmentDuration time.Duration `env:"SEGMENT_DURATION" envDefault:"1h" validate:"gte=0"`
	Fsync           bool          `env:"FSYNC" envDefault:"true"`
}

type OutputLogConfig struct {
	Dir    string `env:"DIR" envDefault:"./data/output" validate:"required"`
	NoSync bool   `env:"NO_SYNC"`
}

// CheckpointConfig selects where checkpoints are stored. Backend none
// disables checkpoints; recovery then replays the whole input log.
type CheckpointConfig struct {
	Backend       string `env:"BACKEND" envDefault:"pebble" validate:"oneof=pebble redis none"`
	Dir           string `env:"DIR" envDefault:"./data/checkpoints" validate:"required_if=Backend pebble"`
	RedisAddr     string `env:"REDIS_ADDR" validate:"required_if=Backend redis"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"sequencer:"`
}

type SequencerConfig struct {
	// Sandbox enables Reset and GetState.
	Sandbox      bool          `env:"SANDBOX"`
	StrictReplay bool          `env:"STRICT_REPLAY"`
	EcoMode      bool          `env:"ECO_MODE" envDefault:"true"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10ms"`
	PruneInput   bool          `env:"PRUNE_INPUT"`
}

type GRPCConfig struct {
	Addr         string        `env:"ADDR" envDefault:":50051" validate:"required"`
	AwaitPoll    time.Duration `env:"AWAIT_POLL" envDefault:"1ms"`
	AwaitTimeout time.Duration `env:"AWAIT_TIMEOUT" envDefault:"0s"`
}

// BroadcastConfig selects the Kafka client that forwards committed
// responses. Backend none disables forwarding.
type BroadcastConfig struct {
	Backend  string        `env:"BACKEND" envDefault:"none" validate:"oneof=sarama kafkago none"`
	Brokers  []string      `env:"BROKERS" envSeparator:"," validate:"required_unless=Backend none"`
	Topic    string        `env:"TOPIC" envDefault:"sequencer.responses" validate:"required_unless=Backend none"`
	Key      string        `env:"KEY" envDefault:"responses"`
	Cursor   string        `env:"CURSOR" envDefault:"broadcast"`
	Interval time.Duration `env:"INTERVAL" envDefault:"250ms"`
	Batch    int           `env:"BATCH" envDefault:"512" validate:"gte=0"`
}
