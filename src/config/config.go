package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/ghs/src/common"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultTraceFile is the default name of the trace file, when tracing to
	// a file is enabled without an explicit path.
	DefaultTraceFile = "trace.log"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultFormat       = "matrix"
	DefaultSeed         = 0
	DefaultBudgetMin    = 5
	DefaultBudgetMax    = 50
	DefaultTickMin      = 1
	DefaultTickMax      = 10
	DefaultIdleUnit     = 100 * time.Microsecond
	DefaultMaxLatency   = 0
	DefaultFlushTimeout = 5 * time.Second
	DefaultRunTimeout   = 60 * time.Second
	DefaultStore        = false
	DefaultNoService    = true
	DefaultServiceAddr  = "127.0.0.1:8000"
)

// Config contains all the configuration properties of a simulation run.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the console output. Trace events
	// are logged at info level.
	LogLevel string `mapstructure:"log"`

	// Topology is the path of the topology file. When empty, the 10-node
	// sample network is used.
	Topology string `mapstructure:"topology"`

	// Format is the format of the topology file: matrix, edges or json.
	Format string `mapstructure:"format"`

	// Seed derives the random generator of every node, so that runs with the
	// same seed draw the same wakeup budgets and latencies.
	Seed int64 `mapstructure:"seed"`

	// BudgetMin and BudgetMax bound the idle work, in flops, after which a
	// sleeping node wakes up on its own.
	BudgetMin int `mapstructure:"budget-min"`
	BudgetMax int `mapstructure:"budget-max"`

	// TickMin and TickMax bound the flops of one idle tick.
	TickMin int `mapstructure:"tick-min"`
	TickMax int `mapstructure:"tick-max"`

	// IdleUnit is the duration of one flop of idle work.
	IdleUnit time.Duration `mapstructure:"idle-unit"`

	// MaxLatency is the maximum random delay added to each message. Zero
	// delivers messages immediately.
	MaxLatency time.Duration `mapstructure:"max-latency"`

	// FlushTimeout bounds the wait for each outstanding message when a node
	// exits.
	FlushTimeout time.Duration `mapstructure:"flush-timeout"`

	// RunTimeout aborts a simulation that did not terminate.
	RunTimeout time.Duration `mapstructure:"run-timeout"`

	// Store activates persistant storage of results and trace.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// TraceFile, when set, receives the trace lines.
	TraceFile string `mapstructure:"trace-file"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:      DefaultDataDir(),
		LogLevel:     DefaultLogLevel,
		Format:       DefaultFormat,
		Seed:         DefaultSeed,
		BudgetMin:    DefaultBudgetMin,
		BudgetMax:    DefaultBudgetMax,
		TickMin:      DefaultTickMin,
		TickMax:      DefaultTickMax,
		IdleUnit:     DefaultIdleUnit,
		MaxLatency:   DefaultMaxLatency,
		FlushTimeout: DefaultFlushTimeout,
		RunTimeout:   DefaultRunTimeout,
		Store:        DefaultStore,
		DatabaseDir:  DefaultDatabaseDir(),
		NoService:    DefaultNoService,
		ServiceAddr:  DefaultServiceAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.IdleUnit = 10 * time.Microsecond
	config.RunTimeout = 20 * time.Second
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// TraceFilePath resolves TraceFile against DataDir.
func (c *Config) TraceFilePath() string {
	if c.TraceFile == "" || filepath.IsAbs(c.TraceFile) {
		return c.TraceFile
	}
	return filepath.Join(c.DataDir, c.TraceFile)
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "ghs". The
// underlying logger never filters out trace events, even when the console is
// less verbose, so that trace hooks always see them.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		level := LogLevel(c.LogLevel)

		c.logger = logrus.New()
		c.logger.Level = level
		if level < logrus.InfoLevel {
			c.logger.Level = logrus.InfoLevel
		}
		c.logger.Formatter = &levelFormatter{
			Formatter: new(prefixed.TextFormatter),
			level:     level,
		}
	}
	return c.logger.WithField("prefix", "ghs")
}

// levelFormatter drops the entries that are more verbose than level.
type levelFormatter struct {
	logrus.Formatter
	level logrus.Level
}

func (f *levelFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.Level > f.level {
		return nil, nil
	}
	return f.Formatter.Format(entry)
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".GHS")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "GHS")
		} else {
			return filepath.Join(home, ".ghs")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
