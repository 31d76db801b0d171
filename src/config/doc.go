// Package config defines the configuration for a mesh node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package. On top of these options, a node relies on a data directory,
// defined by Config.DataDir, where it expects to find or create a few files:
//
//	config.json // the JSON object of peers (hostname -> address).
//	peermesh.toml // (optional) configuration file, .json and .yaml also work.
//	logs/communication.log // log lines, appended.
//	data/communication.csv // activity records, appended.
//	badger_db // (with --store) the Badger database of activity records.
package config
