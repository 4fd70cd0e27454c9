package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quillchat/internal/domain/entity"
)

func init() {
	rootCmd.AddCommand(conversationIDCmd)
}

var conversationIDCmd = &cobra.Command{
	Use:   "conversation-id [uid] [uid]",
	Short: "Print the conversation id of two users",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), entity.ConversationID(args[0], args[1]))
	},
}
