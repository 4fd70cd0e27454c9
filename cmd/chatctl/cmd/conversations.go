package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quillchat/internal/adapter/repository"
	"quillchat/internal/domain/entity"
	domainrepo "quillchat/internal/domain/repository"
)

func init() {
	rootCmd.AddCommand(conversationsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations [uid]",
	Short: "List the conversations of a user, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		convs, err := firstSnapshot(ctx, repository.NewFirestoreConversationRepository(b.firestore), args[0])
		if err != nil {
			return err
		}
		printConversations(cmd.OutOrStdout(), args[0], convs)
		return nil
	},
}

// firstSnapshot subscribes to the conversations of uid and returns the first
// snapshot delivered.
func firstSnapshot(ctx context.Context, repo domainrepo.ConversationRepository, uid string) ([]entity.Conversation, error) {
	type result struct {
		convs []entity.Conversation
		err   error
	}
	done := make(chan result, 1)
	deliver := func(r result) {
		select {
		case done <- r:
		default:
		}
	}

	unsubscribe := repo.ListenByParticipant(ctx, uid,
		func(convs []entity.Conversation) { deliver(result{convs: convs}) },
		func(err error) { deliver(result{err: err}) },
	)
	defer unsubscribe()

	select {
	case r := <-done:
		return r.convs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func printConversations(out io.Writer, uid string, convs []entity.Conversation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWITH\tUNREAD\tLAST ACTIVITY\tLAST MESSAGE")
	for i := range convs {
		c := &convs[i]
		last := ""
		if c.LastMessage != nil {
			last = c.LastMessage.Content
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.OtherParticipant(uid), c.UnreadFor(uid), formatTime(c.LastActivity), last)
	}
	w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
