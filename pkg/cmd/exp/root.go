// Package exp holds experimental commands, used by CI only.
package exp

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var expCmd = &cobra.Command{
	Use:   "exp",
	Short: "Experimental commands.",
	Long:  "Experimental commands used by the CI pipelines. Their flags and behavior may change without notice.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Errorf("error loading help(): %v", err)
		}
	},
}

func init() {
	expCmd.AddCommand(cmdPublish)
}

func NewCmdExp() *cobra.Command {
	return expCmd
}
