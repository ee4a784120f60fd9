package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/carpintaria/internal/runtime"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/aretw0/carpintaria/pkg/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatGraph() *domain.Graph {
	g := domain.NewGraph("start")
	g.Nodes["start"] = &domain.Node{ID: "start", Message: "Olá!", Options: []domain.Option{
		{Label: "Plataformas", Action: domain.Next{NodeID: "platforms"}},
		{Label: "Site", Action: domain.OpenLink{URL: "https://example.com"}},
	}}
	g.Nodes["platforms"] = &domain.Node{ID: "platforms", Message: "Qual lhe interessa?", Options: []domain.Option{
		{Label: "Eventos", Action: domain.Navigate{URL: "Txiling.html"}},
		{Label: "Voltar", Action: domain.Next{NodeID: "start"}},
	}}
	return g
}

type line struct {
	Type    string         `json:"type"`
	Entries []domain.Entry `json:"entries"`
	Message string         `json:"message"`
}

func decodeLines(t *testing.T, out string) []line {
	t.Helper()
	var lines []line
	for _, raw := range strings.Split(strings.TrimSpace(out), "\n") {
		if raw == "" {
			continue
		}
		var l line
		require.NoError(t, json.Unmarshal([]byte(raw), &l), raw)
		lines = append(lines, l)
	}
	return lines
}

func botTexts(lines []line) []string {
	var texts []string
	for _, l := range lines {
		for _, e := range l.Entries {
			if e.Kind == domain.EntryMessage && e.Sender == domain.SenderBot {
				texts = append(texts, e.Text)
			}
		}
	}
	return texts
}

func systemMessages(lines []line) []string {
	var msgs []string
	for _, l := range lines {
		if l.Type == "system" {
			msgs = append(msgs, l.Message)
		}
	}
	return msgs
}

func newRunner(in string, out *bytes.Buffer, opts ...runner.Option) *runner.Runner {
	opts = append([]runner.Option{
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(in), out)),
		runner.WithScheduler(widget.ImmediateScheduler{}),
	}, opts...)
	return runner.NewRunner(opts...)
}

func TestRunner_SelectsAndNavigates(t *testing.T) {
	var out bytes.Buffer
	r := newRunner("1\n1\n", &out)

	err := r.Run(context.Background(), runtime.NewEngine(chatGraph()))
	require.NoError(t, err)

	lines := decodeLines(t, out.String())
	assert.Equal(t, []string{"Olá!", "Qual lhe interessa?"}, botTexts(lines))
	assert.Equal(t, []string{"Navegar para: Txiling.html"}, systemMessages(lines))
}

func TestRunner_OpenLinkAndUnavailableOption(t *testing.T) {
	var out bytes.Buffer
	r := newRunner("2\n9\n/sair\n", &out)

	require.NoError(t, r.Run(context.Background(), runtime.NewEngine(chatGraph())))

	lines := decodeLines(t, out.String())
	assert.Equal(t, []string{"Olá!", runtime.LinkOpenedMessage}, botTexts(lines))
	assert.Equal(t, []string{
		"Abrir em nova janela: https://example.com",
		"Opção 9 indisponível.",
	}, systemMessages(lines))
}

func TestRunner_FreeTextDeflects(t *testing.T) {
	var out bytes.Buffer
	r := newRunner("\"quanto custa?\"\n", &out)

	require.NoError(t, r.Run(context.Background(), runtime.NewEngine(chatGraph())))

	assert.Equal(t, []string{"Olá!", runtime.DeflectionMessage}, botTexts(decodeLines(t, out.String())))
}

func TestRunner_PersistsAndResumes(t *testing.T) {
	store := memory.NewStore()
	engine := runtime.NewEngine(chatGraph())

	var first bytes.Buffer
	r := newRunner("1\n", &first, runner.WithStore(store), runner.WithSessionID("cli"))
	require.NoError(t, r.Run(context.Background(), engine))

	saved, err := store.Load(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, "platforms", saved.CurrentNodeID)

	var second bytes.Buffer
	r = newRunner("/sair\n", &second, runner.WithStore(store), runner.WithSessionID("cli"))
	require.NoError(t, r.Run(context.Background(), engine))

	lines := decodeLines(t, second.String())
	assert.Equal(t, []string{"Qual lhe interessa?"}, botTexts(lines), "resume shows the last bot message only")
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1].Entries
	require.NotEmpty(t, last)
	assert.Equal(t, domain.EntryOptions, last[len(last)-1].Kind)
}

func TestTextHandler_ShowsNumberedOptions(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader(""), &out)

	err := h.Show(context.Background(), []domain.Entry{
		{Kind: domain.EntryMessage, Sender: domain.SenderUser, Text: "eco"},
		{Kind: domain.EntryMessage, Sender: domain.SenderBot, Text: "Olá!"},
		{Kind: domain.EntryOptions, Options: chatGraph().Nodes["start"].Options},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá!\n  [1] Plataformas\n  [2] Site\n", out.String())
}

func TestTextHandler_InputSanitizes(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader("  <b>oi</b>  \n"), &out)

	got, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "oi", got)
	assert.Equal(t, "> ", out.String())
}
