package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/ghs/src/common"
	"github.com/sirupsen/logrus"
)

// Config contains the parameters of a node actor.
type Config struct {
	// BudgetMin and BudgetMax bound the idle work, in flops, a sleeping node
	// performs before waking up on its own.
	BudgetMin int `mapstructure:"budget-min"`
	BudgetMax int `mapstructure:"budget-max"`

	// TickMin and TickMax bound the flops done by one idle tick.
	TickMin int `mapstructure:"tick-min"`
	TickMax int `mapstructure:"tick-max"`

	// IdleUnit is the time one flop takes. Zero yields the processor
	// instead of sleeping.
	IdleUnit time.Duration `mapstructure:"idle-unit"`

	// FlushTimeout bounds the wait for each outstanding delivery before the
	// node exits.
	FlushTimeout time.Duration `mapstructure:"flush-timeout"`

	Logger *logrus.Logger
}

// NewConfig ...
func NewConfig(budgetMin, budgetMax int,
	tickMin, tickMax int,
	idleUnit time.Duration,
	flushTimeout time.Duration,
	logger *logrus.Logger) *Config {

	return &Config{
		BudgetMin:    budgetMin,
		BudgetMax:    budgetMax,
		TickMin:      tickMin,
		TickMax:      tickMax,
		IdleUnit:     idleUnit,
		FlushTimeout: flushTimeout,
		Logger:       logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		BudgetMin:    5,
		BudgetMax:    50,
		TickMin:      1,
		TickMax:      10,
		IdleUnit:     100 * time.Microsecond,
		FlushTimeout: 5 * time.Second,
		Logger:       logger,
	}
}

// TestConfig ...
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.IdleUnit = 10 * time.Microsecond
	config.Logger = common.NewTestLogger(t, common.TestLogLevel)
	return config
}
