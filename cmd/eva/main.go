package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eva-chat/internal/app"
	"eva-chat/internal/tui"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	mockMode   bool
)

func buildApplication() (*app.Application, error) {
	path := configPath
	if path == "" {
		path = app.DefaultConfigPath()
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("EVA_AUTH_TOKEN")
	}
	if url := os.Getenv("EVA_AGENT_URL"); url != "" {
		cfg.AgentURL = url
	}
	return app.NewApplication(cfg, mockMode)
}

func main() {
	root := &cobra.Command{
		Use:     "eva",
		Short:   "eva - local-first chat client for A2A agents",
		Long:    "eva keeps your chats in a local SQLite database and streams agent replies\nover the A2A protocol. Run without arguments for the interactive TUI.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication()
			if err != nil {
				return err
			}
			defer application.Close()
			return tui.Run(application)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().BoolVar(&mockMode, "mock", false, "use a scripted agent instead of the network")

	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			chats, err := application.Chats.ListChats()
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Println("no chats yet")
				return nil
			}
			for _, chat := range chats {
				fmt.Printf("%s  %-40s  %s\n", chat.ID, chat.Title, chat.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	var newChat bool
	sendCmd := &cobra.Command{
		Use:   "send [chat-id] [text...]",
		Short: "Send one message and print the agent's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			var chatID, text string
			if newChat {
				chat, err := application.Chats.CreateChat()
				if err != nil {
					return err
				}
				chatID = chat.ID
				text = strings.Join(args, " ")
			} else {
				if len(args) < 2 {
					return fmt.Errorf("usage: eva send <chat-id> <text>")
				}
				chatID = args[0]
				text = strings.Join(args[1:], " ")
			}

			if err := application.Turns.SendTurn(ctx, chatID, text); err != nil {
				return err
			}
			msgs, err := application.Chats.Messages(chatID)
			if err != nil {
				return err
			}
			if len(msgs) > 0 {
				fmt.Println(msgs[len(msgs)-1].Content)
			}
			return nil
		},
	}
	sendCmd.Flags().BoolVar(&newChat, "new", false, "create a fresh chat for this message")

	root.AddCommand(chatsCmd, sendCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
