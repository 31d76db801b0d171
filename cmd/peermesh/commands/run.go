package commands

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mosaicnetworks/peermesh/src/node"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRunCmd returns the command that starts a mesh node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <hostname> <mptcp_enabled>",
		Short:   "Run node",
		Long:    "Run the node named <hostname> of the peer file. <mptcp_enabled> is true or false.",
		Args:    cobra.ExactArgs(2),
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNode(cmd *cobra.Command, args []string) error {
	logger := _config.Node.Logger()

	n := node.NewNode(&_config.Node, nil)

	if err := n.Init(); err != nil {
		logger.WithError(err).Error("Cannot initialize node")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		//Relay SIGINT and SIGTERM
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig).Info("Interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	return n.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Node.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Node.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().Bool("log-to-file", _config.Node.LogToFile, "Also write logs to [datadir]/logs/communication.log")

	// Peers
	cmd.Flags().String("peers", _config.Node.PeersFile, "JSON peer file (default [datadir]/config.json)")
	cmd.Flags().Int("base-port", _config.Node.BasePort, "Port of the first peer, the others follow")

	// Network
	cmd.Flags().Duration("interval", _config.Node.Interval, "Time between sending cycles")
	cmd.Flags().DurationP("timeout", "t", _config.Node.DialTimeout, "Connect and write timeout")
	cmd.Flags().Duration("read-timeout", _config.Node.ReadTimeout, "Inbound read timeout")
	cmd.Flags().Bool("no-ip-lookup", _config.Node.NoIPLookup, "Do not look up the public and local IP addresses")
	cmd.Flags().String("ip-url", _config.Node.PublicIPURL, "Public IP lookup service")

	// Activity
	cmd.Flags().Bool("csv", _config.Node.ActivityCSV, "Append activity to [datadir]/data/communication.csv")
	cmd.Flags().Bool("store", _config.Node.Store, "Also persist activity in badgerDB")
	cmd.Flags().String("db", _config.Node.DatabaseDir, "Database directory")
	cmd.Flags().Int("cache-size", _config.Node.CacheSize, "Number of recent records kept in memory")

	// Service
	cmd.Flags().Bool("no-service", _config.Node.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Node.ServiceAddr, "Listen IP:Port for HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// Positional arguments override flags and config file
	_config.Node.Hostname = args[0]

	mptcp, err := strconv.ParseBool(args[1])
	if err != nil {
		return errors.Wrapf(err, "invalid mptcp_enabled %q", args[1])
	}
	_config.Node.MultipathTCP = mptcp

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Node.SetDataDir(_config.Node.DataDir)

	logFields := logrus.Fields{
		"DataDir":      _config.Node.DataDir,
		"PeersFile":    _config.Node.PeersPath(),
		"Hostname":     _config.Node.Hostname,
		"MultipathTCP": _config.Node.MultipathTCP,
		"BasePort":     _config.Node.BasePort,
		"Interval":     _config.Node.Interval,
		"DialTimeout":  _config.Node.DialTimeout,
		"ReadTimeout":  _config.Node.ReadTimeout,
		"ActivityCSV":  _config.Node.ActivityCSV,
		"Store":        _config.Node.Store,
		"CacheSize":    _config.Node.CacheSize,
		"NoService":    _config.Node.NoService,
		"LogLevel":     _config.Node.LogLevel,
	}

	if _config.Node.Store {
		logFields["DatabaseDir"] = _config.Node.DatabaseDir
	}

	if !_config.Node.NoService {
		logFields["ServiceAddr"] = _config.Node.ServiceAddr
	}

	_config.Node.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/peermesh.toml (.json, .yaml also work)
	viper.SetConfigName("peermesh")           // name of config file (without extension)
	viper.AddConfigPath(_config.Node.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Node.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Node.Logger().Debugf("No config file found in: %s", _config.Node.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
