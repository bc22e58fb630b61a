package loop

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/transcript"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

func liveConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("FORMPILOT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set FORMPILOT_RUN_LIVE_TESTS=1 to run live LLM tests")
	}
	cfg, err := config.Load("../config.json")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}
	if cfg.APIKey == "" {
		t.Skip("config.json api_key is empty")
	}
	return cfg
}

const liveInput = "Hi, I'm Ada Lovelace, ada@example.com. I live at 12 Analytical Way, Engine Street, Springfield, IL 62701, USA."

func assertLiveRun(t *testing.T, producer Producer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	l := newLoop(t, producer)

	res, err := l.Run(ctx, nil, transcript.UserTurn(liveInput))
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Steps, int(DefaultBudget))
	require.NotNil(t, res.LastResult, "the first turn is forced to call the operation")
	t.Logf("reason=%s steps=%d ok=%v errors=%v", res.Reason, res.Steps, res.LastResult.OK, res.LastResult.Errors)
}

func TestLive_EinoProducer(t *testing.T) {
	cfg := liveConfig(t)
	cm, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	require.NoError(t, err)
	producer, err := NewEinoProducer(cm)
	require.NoError(t, err)
	assertLiveRun(t, producer)
}

func TestLive_LangChainProducer(t *testing.T) {
	cfg := liveConfig(t)
	opts := []lcopenai.Option{lcopenai.WithToken(cfg.APIKey), lcopenai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(opts...)
	require.NoError(t, err)
	producer, err := NewLangChainProducer(llm)
	require.NoError(t, err)
	assertLiveRun(t, producer)
}
