// Package app builds the chat stack from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/loop"
	"github.com/tbxark/formpilot/tool"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// NewProducer returns the configured provider with the other one as failback.
func NewProducer(ctx context.Context, cfg *config.Config) (loop.Producer, error) {
	prompt, err := loop.SystemPrompt()
	if err != nil {
		return nil, err
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model failed: %w", err)
	}
	einoProducer, err := loop.NewEinoProducer(cm, loop.WithSystemPrompt(prompt))
	if err != nil {
		return nil, err
	}

	lcOpts := []lcopenai.Option{lcopenai.WithToken(cfg.APIKey), lcopenai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain model failed: %w", err)
	}
	lcProducer, err := loop.NewLangChainProducer(llm, loop.WithSystemPrompt(prompt))
	if err != nil {
		return nil, err
	}

	if cfg.Provider == config.ProviderLangChain {
		return loop.NewFailbackProducer(lcProducer, einoProducer), nil
	}
	return loop.NewFailbackProducer(einoProducer, lcProducer), nil
}

// NewChat wires producer, validation operation, loop and session store.
func NewChat(cfg *config.Config, producer loop.Producer, recorder loop.Recorder) (*agent.Chat, error) {
	op, err := tool.NewValidateFormData()
	if err != nil {
		return nil, err
	}
	opts := []loop.Option{loop.WithBudget(cfg.MaxSteps)}
	if recorder != nil {
		opts = append(opts, loop.WithRecorder(recorder))
	}
	l := loop.New(producer, op, opts...)
	sessions := agent.NewMemorySessionStore(agent.KeepLastNTurns{N: cfg.HistoryTurns})
	return agent.NewChat(l, sessions), nil
}
