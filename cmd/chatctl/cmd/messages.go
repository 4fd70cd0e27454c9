package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quillchat/internal/adapter/repository"
	"quillchat/internal/domain/entity"
	"quillchat/pkg/utils"
)

var (
	messagesLimit  int
	messagesBefore string
)

func init() {
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 50, "page size")
	messagesCmd.Flags().StringVar(&messagesBefore, "before", "", "cursor printed by a previous page")
	rootCmd.AddCommand(messagesCmd)
}

var messagesCmd = &cobra.Command{
	Use:   "messages [conversation-id]",
	Short: "Print a page of messages of a conversation, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var before *entity.MessageCursor
		if messagesBefore != "" {
			ts, id, err := utils.DecodeCursor(messagesBefore)
			if err != nil {
				return err
			}
			before = &entity.MessageCursor{Timestamp: ts, ID: id}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		page, err := repository.NewFirestoreMessageRepository(b.firestore).ListPage(ctx, args[0], before, messagesLimit)
		if err != nil {
			return err
		}
		printMessages(cmd.OutOrStdout(), page, messagesLimit)
		return nil
	},
}

// printMessages prints a newest-first page in reading order followed by the
// cursor of the next page when the page was full.
func printMessages(out io.Writer, page []entity.Message, limit int) {
	var next string
	if len(page) == limit && len(page) > 0 {
		oldest := page[len(page)-1]
		next = utils.EncodeCursor(oldest.Timestamp, oldest.ID)
	}

	msgs := append([]entity.Message(nil), page...)
	entity.SortMessages(msgs)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFROM\tTYPE\tREAD\tCONTENT")
	for _, m := range msgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", formatTime(m.Timestamp), m.SenderID, m.Type, m.Read, m.Content)
	}
	w.Flush()

	if next != "" {
		fmt.Fprintf(out, "\nmore: --before %s\n", next)
	}
}
