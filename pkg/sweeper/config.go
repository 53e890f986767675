package sweeper

import "time"

// Config controls how often and how much a sweep processes.
type Config struct {
	Schedule  string        `env:"SWEEP_SCHEDULE" envDefault:"@every 5m"`
	BatchSize int           `env:"SWEEP_BATCH_SIZE" envDefault:"200"`
	MaxPages  int           `env:"SWEEP_MAX_PAGES" envDefault:"50"`
	Timeout   time.Duration `env:"SWEEP_TIMEOUT" envDefault:"2m"`
}
