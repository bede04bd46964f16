package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pg "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana/escrow/processor"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
	memory_account_db "github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb/memory"
	postgres_account_db "github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb/postgres"
)

var (
	configPath = flag.String("config", "config.yaml", "configuration file path")
	scenario   = flag.String("scenario", scenarioFulfill, "swap to run against the local bank: fulfill or cancel")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		logrus.StandardLogger().WithField("type", "escrow-localnet").WithError(err).Error("localnet run failed")
		os.Exit(1)
	}
}

func run() error {
	log := logrus.StandardLogger().WithField("type", "escrow-localnet")

	config, err := loadConfig()
	if err != nil {
		return err
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		metricsProvider, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return errors.Wrap(err, "error connecting to new relic")
		}
	}

	configureLogger(config, metricsProvider)

	ctx := metrics.NewContext(context.Background(), metricsProvider)
	ctx, end := metrics.StartTransaction(ctx, config.AppName)
	defer end()

	store, err := newAccountDb(config)
	if err != nil {
		return err
	}

	bank := runtime.NewBank(store, runtime.WithEnvConfigs())

	escrowConfigProvider := processor.WithEnvConfigs()
	if len(config.EscrowProgramId) > 0 {
		program, err := base58.Decode(config.EscrowProgramId)
		if err != nil {
			return errors.Wrap(err, "invalid escrow program id")
		}
		escrowConfigProvider = processor.WithProgramId(program)
	}
	escrowProgram := processor.New(escrowConfigProvider)
	bank.RegisterProgram(escrowProgram)

	log.WithFields(logrus.Fields{
		"account_db":     config.AccountDb,
		"escrow_program": base58.Encode(escrowProgram.ProgramID()),
		"scenario":       *scenario,
	}).Info("starting localnet scenario")

	return runScenario(ctx, bank, escrowProgram.ProgramID(), *scenario, config)
}

func loadConfig() (Config, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file, so a missing explicit file is checked for here.
	if _, err := os.Stat(*configPath); err == nil {
		viper.SetConfigFile(*configPath)
	} else if !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return Config{}, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return config, nil
}

func configureLogger(config Config, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}

func newAccountDb(config Config) (accountdb.Store, error) {
	switch config.AccountDb {
	case accountDbMemory:
		return memory_account_db.New(), nil
	case accountDbPostgres:
		db, err := pg.New(&pg.Config{
			User:               config.PostgresUser,
			Password:           config.PostgresPassword,
			Host:               config.PostgresHost,
			Port:               config.PostgresPort,
			DbName:             config.PostgresDbName,
			MaxOpenConnections: config.PostgresMaxOpenConnections,
		})
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to postgres")
		}
		return postgres_account_db.New(db), nil
	}
	return nil, errors.Errorf("unsupported account db: %s", config.AccountDb)
}
