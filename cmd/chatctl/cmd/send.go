package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quillchat/internal/adapter/repository"
	"quillchat/internal/infrastructure/rabbitmq"
	"quillchat/internal/usecase"
)

var (
	sendAs string
	sendTo string
)

func init() {
	sendCmd.Flags().StringVar(&sendAs, "as", "", "uid of the sender")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "uid of the receiver")
	_ = sendCmd.MarkFlagRequired("as")
	_ = sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [content...]",
	Short: "Send a text message on behalf of a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		identity, err := b.auth.Identity(ctx, sendAs)
		if err != nil {
			return err
		}

		publisher := rabbitmq.NewPublisher(b.cfg.AMQPURL, b.cfg.AMQPExchange)
		defer publisher.Close()

		session := usecase.NewChatUseCase(*identity, b.cfg.Chat,
			repository.NewFirestoreConversationRepository(b.firestore),
			repository.NewFirestoreMessageRepository(b.firestore),
			repository.NewFirestoreUserRepository(b.firestore),
			repository.NewFirestoreNotificationRepository(b.firestore),
			publisher, nil, nil)

		msg, err := session.SendMessage(ctx, usecase.SendMessageInput{
			ReceiverID: sendTo,
			Content:    strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "sent %s in %s\n", msg.ID, msg.ConversationID)
		return nil
	},
}
