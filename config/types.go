package config

import "time"

type AppConfig struct {
	DBDriver     string            `yaml:"db_driver" env:"TESOP_DB_DRIVER" env-default:"sqlite"`
	DBURL        string            `yaml:"db_url" env:"TESOP_DB_URL"`
	DBPath       string            `yaml:"db_path" env:"TESOP_DB_PATH" env-default:"data/tesoportamos.db"`
	ListenAddr   string            `yaml:"listen_addr" env:"TESOP_LISTEN_ADDR" env-default:"0.0.0.0:8000"`
	StoreTimeout time.Duration     `yaml:"store_timeout" env:"TESOP_STORE_TIMEOUT" env-default:"5s"`
	AppEnv       string            `yaml:"app_env" env:"TESOP_APP_ENV"`
	CORS         CORSConfig        `yaml:"cors"`
	ETL          ETLConfig         `yaml:"etl"`
	Classifier   ClassifierConfig  `yaml:"classifier"`
	Maintenance  MaintenanceConfig `yaml:"maintenance"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"TESOP_CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

type ETLConfig struct {
	UploadMaxBytes int64 `yaml:"upload_max_bytes" env:"TESOP_ETL_UPLOAD_MAX_BYTES" env-default:"10485760"`
}

type ClassifierConfig struct {
	RulesPath string `yaml:"rules_path" env:"TESOP_CLASSIFIER_RULES_PATH"`
}

type MaintenanceConfig struct {
	// Disabled, not Enabled: cleanenv re-applies env-default over a
	// zero-valued bool after the YAML pass, so an affirmative flag could
	// not be switched off from the config file.
	Disabled           bool   `yaml:"disabled" env:"TESOP_MAINTENANCE_DISABLED"`
	CronSpec           string `yaml:"cron_spec" env:"TESOP_MAINTENANCE_CRON" env-default:"0 3 * * *"`
	AuditRetentionDays int    `yaml:"audit_retention_days" env:"TESOP_MAINTENANCE_AUDIT_RETENTION_DAYS" env-default:"90"`
}

const minStoreTimeout = time.Second

// EffectiveStoreTimeout bounds every store access; a zero or sub-second
// configured value falls back to the default rather than disabling the guard.
func (c *AppConfig) EffectiveStoreTimeout() time.Duration {
	if c == nil || c.StoreTimeout < minStoreTimeout {
		return 5 * time.Second
	}
	return c.StoreTimeout
}
