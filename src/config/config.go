package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/peermesh/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultPeersFile is the default name of the JSON peer file.
	DefaultPeersFile = "config.json"

	// DefaultLogFile is the path, relative to the data directory, of the log
	// file.
	DefaultLogFile = "logs/communication.log"

	// DefaultActivityFile is the path, relative to the data directory, of the
	// CSV activity file.
	DefaultActivityFile = "data/communication.csv"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultBasePort     = 5000
	DefaultInterval     = 5 * time.Second
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 5 * time.Second
	DefaultCacheSize    = 1000
	DefaultStore        = false
	DefaultNoService    = true
	DefaultServiceAddr  = "127.0.0.1:8000"
	DefaultNoIPLookup   = false
	DefaultPublicIPURL  = "https://api.ipify.org?format=json"
	DefaultLogToFile    = true
	DefaultActivityCSV  = true
	DefaultMultipathTCP = false
)

// Config contains all the configuration properties of a mesh node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogToFile also appends log lines to DataDir/logs/communication.log.
	LogToFile bool `mapstructure:"log-to-file"`

	// PeersFile is the JSON peer file. Defaults to DataDir/config.json.
	PeersFile string `mapstructure:"peers"`

	// Hostname is the local identity of the node. It must be a key of the
	// peer file.
	Hostname string `mapstructure:"hostname"`

	// MultipathTCP requests Multipath TCP for every socket. The node falls
	// back to plain TCP when the platform does not support it.
	MultipathTCP bool `mapstructure:"mptcp"`

	// BasePort is the port of the first peer of the table. The others follow.
	BasePort int `mapstructure:"base-port"`

	// Interval is the pause between two sending cycles.
	Interval time.Duration `mapstructure:"interval"`

	// DialTimeout bounds every outbound connection and write.
	DialTimeout time.Duration `mapstructure:"timeout"`

	// ReadTimeout bounds the single read of every inbound connection.
	ReadTimeout time.Duration `mapstructure:"read-timeout"`

	// ActivityCSV appends activity records to DataDir/data/communication.csv.
	ActivityCSV bool `mapstructure:"csv"`

	// Store activates the Badger activity store.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the number of recent records kept in memory for the HTTP
	// service.
	CacheSize int `mapstructure:"cache-size"`

	// NoService disables the HTTP status service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP status service.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoIPLookup disables the public and local IP lookups at startup.
	NoIPLookup bool `mapstructure:"no-ip-lookup"`

	// PublicIPURL is queried for the public address of the machine.
	PublicIPURL string `mapstructure:"ip-url"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:      DefaultDataDir(),
		LogLevel:     DefaultLogLevel,
		LogToFile:    DefaultLogToFile,
		MultipathTCP: DefaultMultipathTCP,
		BasePort:     DefaultBasePort,
		Interval:     DefaultInterval,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		ActivityCSV:  DefaultActivityCSV,
		Store:        DefaultStore,
		DatabaseDir:  DefaultDatabaseDir(),
		CacheSize:    DefaultCacheSize,
		NoService:    DefaultNoService,
		ServiceAddr:  DefaultServiceAddr,
		NoIPLookup:   DefaultNoIPLookup,
		PublicIPURL:  DefaultPublicIPURL,
	}

	return config
}

// NewTestConfig returns a config object with default values, a special logger
// for debugging tests, and every file output and outside lookup disabled.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	config.LogToFile = false
	config.ActivityCSV = false
	config.NoIPLookup = true
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

// PeersPath returns the full path of the JSON peer file.
func (c *Config) PeersPath() string {
	if c.PeersFile != "" {
		return c.PeersFile
	}
	return filepath.Join(c.DataDir, DefaultPeersFile)
}

// LogPath returns the full path of the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, DefaultLogFile)
}

// ActivityPath returns the full path of the CSV activity file.
func (c *Config) ActivityPath() string {
	return filepath.Join(c.DataDir, DefaultActivityFile)
}

// Logger returns a formatted logrus Entry, with prefix set to "peermesh".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogToFile {
			c.addFileHook()
		}
	}
	return c.logger.WithField("prefix", "peermesh")
}

// addFileHook makes the logger also append every line to LogPath.
func (c *Config) addFileHook() {
	path := c.LogPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.logger.WithError(err).Warnf("Failed to create %s, logging to stderr only", filepath.Dir(path))
		return
	}

	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = path
	}

	c.logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
	))
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
			return filepath.Join(home, ".PeerMesh")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "PeerMesh")
		} else {
			return filepath.Join(home, ".peermesh")
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
		return logrus.DebugLevel
	}
}
