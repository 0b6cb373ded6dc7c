package config

import (
	"fmt"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Redis); err != nil {
		errors = append(errors, err)
	}

	if err := validateBus(cfg.Bus); err != nil {
		errors = append(errors, err)
	}

	if err := validateHistory(cfg.History); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "redis.host",
			Message: "redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateBus(cfg BusConfig) error {
	if !cfg.Kafka.Enabled {
		return nil
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "bus.kafka.brokers",
			Message: "at least one broker is required when kafka is enabled",
		}
	}

	if cfg.Kafka.ArchiveTopic == "" && cfg.Kafka.DLQTopic == "" {
		return &ValidationError{
			Field:   "bus.kafka",
			Message: "kafka enabled but neither archive_topic nor dlq_topic configured",
		}
	}

	return nil
}

func validateHistory(cfg HistoryConfig) error {
	if cfg.Capacity < 1 {
		return &ValidationError{
			Field:   "history.capacity",
			Message: fmt.Sprintf("capacity must be positive, got %d", cfg.Capacity),
		}
	}

	if cfg.ExpiryDays < 1 {
		return &ValidationError{
			Field:   "history.expiry_days",
			Message: fmt.Sprintf("expiry must be at least one day, got %d", cfg.ExpiryDays),
		}
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return &ValidationError{
				Field:   "history.timezone",
				Message: fmt.Sprintf("unknown timezone %q", cfg.Timezone),
			}
		}
	}

	return nil
}
