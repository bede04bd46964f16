package main

import (
	"github.com/spf13/viper"
)

const (
	accountDbMemory   = "memory"
	accountDbPostgres = "postgres"
)

// Config is the localnet configuration, read from the config file with
// environment variable overrides.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// Metrics configuration
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// AccountDb selects where account state lives: memory or postgres
	AccountDb string `mapstructure:"account_db"`

	PostgresHost               string `mapstructure:"postgres_host"`
	PostgresPort               int    `mapstructure:"postgres_port"`
	PostgresUser               string `mapstructure:"postgres_user"`
	PostgresPassword           string `mapstructure:"postgres_password"`
	PostgresDbName             string `mapstructure:"postgres_db_name"`
	PostgresMaxOpenConnections int    `mapstructure:"postgres_max_open_connections"`

	// EscrowProgramId is the base58 address the escrow program is deployed
	// at. When empty, ESCROW_PROGRAM_ID or the well-known address is used.
	EscrowProgramId string `mapstructure:"escrow_program_id"`

	// Trade parameters used by the scripted scenarios
	Nonce           uint64 `mapstructure:"nonce"`
	RequestedAmount uint64 `mapstructure:"requested_amount"`
	DepositAmount   uint64 `mapstructure:"deposit_amount"`
}

var defaultConfig = Config{
	LogLevel: "info",
	AppName:  "escrow-localnet",

	AccountDb: accountDbMemory,

	PostgresHost:   "localhost",
	PostgresPort:   5432,
	PostgresUser:   "postgres",
	PostgresDbName: "postgres",

	Nonce:           7,
	RequestedAmount: 100,
	DepositAmount:   50,
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("account_db", "ACCOUNT_DB")

	_ = viper.BindEnv("postgres_host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres_port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres_user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres_password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_db_name", "POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres_max_open_connections", "POSTGRES_MAX_OPEN_CONNECTIONS")

	_ = viper.BindEnv("escrow_program_id", "LOCALNET_ESCROW_PROGRAM_ID")

	_ = viper.BindEnv("nonce", "NONCE")
	_ = viper.BindEnv("requested_amount", "REQUESTED_AMOUNT")
	_ = viper.BindEnv("deposit_amount", "DEPOSIT_AMOUNT")
}
