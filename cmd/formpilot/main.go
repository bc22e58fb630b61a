package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/internal/app"
	"github.com/tbxark/formpilot/internal/logger"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/types"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slog.SetDefault(logger.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel))
	if err := startApp(context.Background(), cfg); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, cfg *config.Config) error {
	ctx = agent.WithSessionKey(ctx, "cli")
	producer, err := app.NewProducer(ctx, cfg)
	if err != nil {
		return err
	}
	chat, err := app.NewChat(cfg, producer, nil)
	if err != nil {
		return err
	}
	formAgent := agent.NewAgent(
		"RegistrationFiller",
		"An agent that helps users fill a registration form via conversation",
		chat,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: formAgent,
	})

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Tell me about yourself and I will fill the registration form. /reset starts over, quit exits.")
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Input closed. Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		iter := runner.Run(ctx, []adk.Message{schema.UserMessage(input)})
		exit := false
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				fmt.Printf("\nAssistant error: %v\n", event.Err)
				continue
			}
			if event.Action != nil && event.Action.Exit {
				exit = true
			}
			if event.Output == nil || event.Output.MessageOutput == nil {
				continue
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Printf("\nAssistant: %v\n", msg.Content)
		}
		if exit {
			return nil
		}
		printForm(ctx, chat)
		fmt.Println("======")
	}
}

func printForm(ctx context.Context, chat *agent.Chat) {
	sess, err := chat.Sessions().Load(ctx)
	if err != nil || sess.Record == nil {
		return
	}
	fmt.Println()
	fmt.Print(types.FormatFields("Form data", sess.Record.Fields()))
	if res := record.Validate(*sess.Record); !res.OK {
		fmt.Print(types.FormatIssues(res.Errors))
	}
}
