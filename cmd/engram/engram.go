// Package engramcmder provides the root engram command.
package engramcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/engram/cmd/engram/chat"
	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	versioncmder "github.com/papercomputeco/engram/cmd/engram/version"
)

const engramLongDesc string = `Engram is two-tier conversational memory for your agents.

Every session keeps a bounded buffer of recent turns recalled verbatim,
backed by a long-term semantic store of distilled facts recalled by
meaning. Old turns are consolidated into facts automatically as the
conversation grows.

Try it interactively:
  engram chat              Chat with memory-augmented recall
  engram config list       Show the active configuration`

const engramShortDesc string = "Engram - Conversational Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram/ directory location")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
