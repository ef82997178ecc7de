package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Transaction struct {
		MaxRetries            int `mapstructure:"max_retries"`
		RetryBackoffMillis    int `mapstructure:"retry_backoff_ms"`
		PendingTimeoutMinutes int `mapstructure:"pending_timeout_minutes"`
		ReaperIntervalSeconds int `mapstructure:"reaper_interval_seconds"`
	} `mapstructure:"transaction"`
	Webhook struct {
		URL        string `mapstructure:"url"`
		QueueSize  int    `mapstructure:"queue_size"`
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"webhook"`
}

// RetryBackoff returns the base backoff between optimistic-concurrency retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Transaction.RetryBackoffMillis) * time.Millisecond
}

// PendingTimeout returns how long a transaction may stay PENDING before the
// reaper finalizes it as FAILED.
func (c *Config) PendingTimeout() time.Duration {
	return time.Duration(c.Transaction.PendingTimeoutMinutes) * time.Minute
}

// ReaperInterval returns how often the reaper sweeps for stale transactions.
func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.Transaction.ReaperIntervalSeconds) * time.Second
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("transaction.max_retries", 3)
	viper.SetDefault("transaction.retry_backoff_ms", 25)
	viper.SetDefault("transaction.pending_timeout_minutes", 30)
	viper.SetDefault("transaction.reaper_interval_seconds", 60)
	viper.SetDefault("webhook.queue_size", 256)
	viper.SetDefault("webhook.max_retries", 5)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
