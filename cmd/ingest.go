package cmd

import (
	"github.com/data-literacy-alliance/oerbservatory/internal/ingestcmd"
	"github.com/spf13/cobra"
)

func ingestCommands() []*cobra.Command {
	return []*cobra.Command{
		ingestcmd.NewDALIACmd(),
		ingestcmd.NewGTNCmd(),
		ingestcmd.NewOERhubCmd(),
		ingestcmd.NewOERSICmd(),
		ingestcmd.NewTeSSCmd(),
		ingestcmd.NewAllCmd(),
		ingestcmd.NewSearchCmd(),
		ingestcmd.NewInspectCmd(),
	}
}
