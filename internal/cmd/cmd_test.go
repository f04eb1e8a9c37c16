package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/ailink"
	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/core/search"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		LLM: ailink.Config{BaseURL: "https://llm.example.com/v1"},
		Search: config.SearchConfig{
			Provider: "tavily",
			APIKey:   "tvly-test",
			BaseURL:  "https://search.example.com",
			Timeout:  time.Second,
		},
		Cache: config.CacheConfig{Backend: backend, TTL: time.Minute, CleanupInterval: time.Minute},
	}
}

func TestBuildPipelineCacheBackends(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		p, err := buildPipeline(context.Background(), testConfig("memory"), nil)
		require.NoError(t, err)
		defer p.Close() // nolint:errcheck

		cached, ok := p.Searcher.(*search.CachedSearcher)
		require.True(t, ok, "expected cached searcher, got %T", p.Searcher)
		require.IsType(t, &search.MemoryCache{}, cached.Cache)
		require.Equal(t, time.Minute, cached.TTL)
		require.True(t, p.searchConfigured())
		require.Nil(t, p.Store)
	})

	t.Run("None", func(t *testing.T) {
		p, err := buildPipeline(context.Background(), testConfig("none"), nil)
		require.NoError(t, err)

		client, ok := p.Searcher.(*search.TavilyClient)
		require.True(t, ok, "expected bare provider, got %T", p.Searcher)
		require.Equal(t, "tvly-test", client.APIKey)
		require.NoError(t, p.Close())
	})

	t.Run("MissingSearchKey", func(t *testing.T) {
		cfg := testConfig("memory")
		cfg.Search.APIKey = ""
		p, err := buildPipeline(context.Background(), cfg, nil)
		require.NoError(t, err)
		require.False(t, p.searchConfigured())
	})
}

func TestPipelineOrchestrator(t *testing.T) {
	p := &pipeline{}
	o := p.Orchestrator()
	require.Nil(t, o.LLM)

	svc, err := ailink.NewService(ailink.Config{})
	require.NoError(t, err)
	p.LLM = svc
	require.NotNil(t, p.Orchestrator().LLM)

	var nilPipeline *pipeline
	require.NoError(t, nilPipeline.Close())
}

func TestEndpointAddr(t *testing.T) {
	cases := map[string]string{
		"https://api.tavily.com":                "api.tavily.com:443",
		"http://localhost/v1":                   "localhost:80",
		"https://open.bigmodel.cn:8443/api/paas": "open.bigmodel.cn:8443",
	}
	for in, want := range cases {
		got, err := endpointAddr(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	_, err := endpointAddr("not a url")
	require.Error(t, err)
}

func TestExitMessage(t *testing.T) {
	require.Equal(t, "FATAL: boom", exitMessage("boom", nil))
	require.Equal(t, "FATAL: load: missing", exitMessage("load", errors.New("missing")))

	envelope := gferrors.NewErrorEnvelope("CONFIG_INVALID", "bad port")
	msg := exitMessage("load", envelope)
	require.True(t, strings.HasPrefix(msg, "FATAL: load [CONFIG_INVALID]: bad port"), msg)
}

func TestSetOrNot(t *testing.T) {
	require.Equal(t, "(set)", setOrNot("key"))
	require.Equal(t, "(not set)", setOrNot("  "))
}

func TestRenderPromptTemplates(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{
		Slug:           "planner",
		Version:        "2",
		Description:    "Decide whether to search",
		SystemTemplate: "You plan searches.",
		UserTemplate:   "Question: {{query}}",
	}}

	rendered := renderPromptTemplates(def)
	require.Contains(t, rendered, "# planner (v2)\n")
	require.Contains(t, rendered, "## system\n\nYou plan searches.\n")
	require.Contains(t, rendered, "## user\n\nQuestion: {{query}}\n")
}

func TestPrintVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	var buf bytes.Buffer
	require.NoError(t, printVersion(&buf, false))
	require.Equal(t, "scoutline 1.2.3\n", buf.String())

	buf.Reset()
	require.NoError(t, printVersion(&buf, true))
	require.Contains(t, buf.String(), "Commit: abc123")
	require.Contains(t, buf.String(), "Built: 2026-01-01")
}

func TestWriteRenderedToFile(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)

	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	require.NoError(t, cmd.Flags().Set("out", path))
	require.NoError(t, writeRendered(cmd, "hello"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestResolveOutputFormat(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)

	format, err := resolveOutputFormat(cmd)
	require.NoError(t, err)
	require.Equal(t, "table", string(format))

	require.NoError(t, cmd.Flags().Set("format", "yaml"))
	_, err = resolveOutputFormat(cmd)
	require.Error(t, err)
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringVar(&serverHost, "host", "localhost", "")
	cmd.Flags().IntVarP(&serverPort, "port", "p", 3001, "")

	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: 8080}}
	applyServeFlags(cmd, cfg)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)

	require.NoError(t, cmd.Flags().Set("port", "4000"))
	applyServeFlags(cmd, cfg)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 4000, cfg.Server.Port)
}
