package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

// RootCmd is the root command for peermesh
var RootCmd = &cobra.Command{
	Use:              "peermesh",
	Short:            "peer-mesh greeting node",
	TraverseChildren: true,
}
