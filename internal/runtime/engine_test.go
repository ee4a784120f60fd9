package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/carpintaria/internal/runtime"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	startMsg      = "Olá! Como posso ajudar?"
	platformsMsg  = "Temos soluções incríveis! Qual lhe interessa?"
	consultingMsg = "Gostaria de agendar um diagnóstico gratuito?"
)

func testGraph() *domain.Graph {
	g := domain.NewGraph("start")
	g.Nodes["start"] = &domain.Node{ID: "start", Message: startMsg, Options: []domain.Option{
		{Label: "🚀 Ver Plataformas", Action: domain.Next{NodeID: "platforms"}},
		{Label: "💰 Consultoria", Action: domain.Next{NodeID: "consulting"}},
	}}
	g.Nodes["platforms"] = &domain.Node{ID: "platforms", Message: platformsMsg, Options: []domain.Option{
		{Label: "TiConta (ERP)", Action: domain.OpenLink{URL: "https://app.example.com"}},
		{Label: "Txiling (Eventos)", Action: domain.Navigate{URL: "Txiling.html"}},
		{Label: "Voltar", Action: domain.Next{NodeID: "start"}},
	}}
	g.Nodes["consulting"] = &domain.Node{ID: "consulting", Message: consultingMsg, Options: []domain.Option{
		{Label: "Sim, no WhatsApp", Action: domain.OpenMessaging{Text: "Olá! Quero um diagnóstico para a minha empresa."}},
		{Label: "Não, obrigado", Action: domain.Next{NodeID: "start"}},
	}}
	return g
}

// selectAndApply selects an option and immediately applies any deferred render.
func selectAndApply(t *testing.T, e *runtime.Engine, state *domain.ConversationState, index int) (*domain.ConversationState, *ports.Step) {
	t.Helper()
	step, err := e.Select(context.Background(), state, index)
	require.NoError(t, err)
	if step.Deferred == nil {
		return step.State, step
	}
	next, applied, err := e.Apply(context.Background(), step.State, step.Deferred)
	require.NoError(t, err)
	require.True(t, applied)
	return next, step
}

func TestEngine_OpenRendersEntryOnce(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	ctx := context.Background()

	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	state := step.State
	assert.True(t, state.Open)
	assert.Equal(t, "start", state.CurrentNodeID)
	require.Len(t, state.Transcript, 2)
	assert.Equal(t, domain.Entry{Kind: domain.EntryMessage, Sender: domain.SenderBot, Text: startMsg}, state.Transcript[0])
	assert.Equal(t, domain.EntryOptions, state.Transcript[1].Kind)

	closed, err := e.Close(ctx, state)
	require.NoError(t, err)
	assert.False(t, closed.State.Open)
	assert.Equal(t, uint64(1), closed.State.Epoch)

	reopened, err := e.Open(ctx, closed.State)
	require.NoError(t, err)
	assert.True(t, reopened.State.Open)
	assert.Equal(t, state.Transcript, reopened.State.Transcript, "reopen must resume, not re-render")
}

func TestEngine_Determinism(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	step, err := e.Open(context.Background(), domain.NewConversation("s1"))
	require.NoError(t, err)

	state, sel := selectAndApply(t, e, step.State, 0)
	require.NotNil(t, sel.Deferred)
	assert.Equal(t, runtime.DefaultTypingDelay, sel.Deferred.Delay)
	assert.Equal(t, "platforms", state.CurrentNodeID)

	msgs := state.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SenderUser, msgs[1].Sender)
	assert.Equal(t, "🚀 Ver Plataformas", msgs[1].Text)
	assert.Equal(t, platformsMsg, msgs[2].Text)

	state, _ = selectAndApply(t, e, state, 2) // Voltar
	last, ok := state.LastMessage()
	require.True(t, ok)
	assert.Equal(t, startMsg, last.Text)
	assert.Equal(t, "start", state.CurrentNodeID)
}

func TestEngine_SingleOptionBlock(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	step, err := e.Open(context.Background(), domain.NewConversation("s1"))
	require.NoError(t, err)
	state := step.State

	path := []int{0, 2, 1, 1, 0, 2, 1, 0}
	for i, idx := range path {
		state, _ = selectAndApply(t, e, state, idx)
		assert.Equal(t, 1, state.OptionBlocks(), "after transition %d", i+1)
	}
}

func TestEngine_SelectActions(t *testing.T) {
	e := runtime.NewEngine(testGraph(), runtime.WithRecipient("123"))
	step, err := e.Open(context.Background(), domain.NewConversation("s1"))
	require.NoError(t, err)

	platforms, _ := selectAndApply(t, e, step.State, 0)

	t.Run("link", func(t *testing.T) {
		next, sel := selectAndApply(t, e, platforms, 0)
		assert.Nil(t, sel.Deferred)
		require.Len(t, sel.Actions, 1)
		assert.Equal(t, domain.ActionOpenWindow, sel.Actions[0].Type)
		assert.Equal(t, "https://app.example.com", sel.Actions[0].Payload)

		last, _ := next.LastMessage()
		assert.Equal(t, runtime.LinkOpenedMessage, last.Text)
		assert.Equal(t, "platforms", next.CurrentNodeID)
		assert.Len(t, next.VisibleOptions(), 3, "options stay available")
	})

	t.Run("goto", func(t *testing.T) {
		next, sel := selectAndApply(t, e, platforms, 1)
		require.Len(t, sel.Actions, 1)
		assert.Equal(t, domain.ActionNavigate, sel.Actions[0].Type)
		assert.Equal(t, "Txiling.html", sel.Actions[0].Payload)
		last, _ := next.LastMessage()
		assert.Equal(t, domain.SenderUser, last.Sender)
	})

	t.Run("messaging", func(t *testing.T) {
		consulting, _ := selectAndApply(t, e, step.State, 1)
		next, sel := selectAndApply(t, e, consulting, 0)
		require.Len(t, sel.Actions, 1)
		assert.Equal(t, domain.ActionOpenWindow, sel.Actions[0].Type)
		assert.Equal(t,
			"https://wa.me/123?text=Ol%C3%A1!%20Quero%20um%20diagn%C3%B3stico%20para%20a%20minha%20empresa.",
			sel.Actions[0].Payload)

		msgs := next.Messages()
		assert.Equal(t, "Sim, no WhatsApp", msgs[len(msgs)-2].Text)
		assert.Equal(t, runtime.MessagingMessage, msgs[len(msgs)-1].Text)
	})
}

func TestEngine_SelectUnavailable(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	ctx := context.Background()

	_, err := e.Select(ctx, domain.NewConversation("s1"), 0)
	assert.ErrorIs(t, err, domain.ErrOptionNotAvailable)

	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)
	_, err = e.Select(ctx, step.State, 7)
	assert.ErrorIs(t, err, domain.ErrOptionNotAvailable)
}

func TestEngine_Submit(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	ctx := context.Background()
	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	blank, err := e.Submit(ctx, step.State, "   ")
	require.NoError(t, err)
	assert.Nil(t, blank.Deferred)
	assert.Equal(t, step.State.Transcript, blank.State.Transcript)

	sub, err := e.Submit(ctx, step.State, "quanto custa?")
	require.NoError(t, err)
	require.NotNil(t, sub.Deferred)
	assert.Equal(t, runtime.DefaultDeflection, sub.Deferred.Delay)

	next, applied, err := e.Apply(ctx, sub.State, sub.Deferred)
	require.NoError(t, err)
	require.True(t, applied)

	msgs := next.Messages()
	assert.Equal(t, "quanto custa?", msgs[len(msgs)-2].Text)
	assert.Equal(t, runtime.DeflectionMessage, msgs[len(msgs)-1].Text)
	assert.Equal(t, "start", next.CurrentNodeID)
	assert.Equal(t, 1, next.OptionBlocks())
}

func TestEngine_ApplyStaleAfterClose(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	ctx := context.Background()
	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	sel, err := e.Select(ctx, step.State, 0)
	require.NoError(t, err)

	closed, err := e.Close(ctx, sel.State)
	require.NoError(t, err)
	reopened, err := e.Open(ctx, closed.State)
	require.NoError(t, err)

	next, applied, err := e.Apply(ctx, reopened.State, sel.Deferred)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "start", next.CurrentNodeID)
}

func TestEngine_DoesNotMutateInput(t *testing.T) {
	e := runtime.NewEngine(testGraph())
	ctx := context.Background()
	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	before := step.State.Snapshot()
	_, _ = selectAndApply(t, e, step.State, 0)
	assert.Equal(t, before, step.State)
}

func TestEngine_Hooks(t *testing.T) {
	var entered []string
	var actions []string
	freeText := 0

	e := runtime.NewEngine(testGraph(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, ev *domain.NodeEvent) { entered = append(entered, ev.NodeID) },
		OnAction:    func(_ context.Context, ev *domain.ActionEvent) { actions = append(actions, ev.Kind) },
		OnFreeText:  func(context.Context, *domain.EventBase) { freeText++ },
	}))
	ctx := context.Background()

	step, err := e.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)
	state, _ := selectAndApply(t, e, step.State, 0)
	_, _ = selectAndApply(t, e, state, 0)
	_, err = e.Submit(ctx, state, "oi")
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "platforms"}, entered)
	assert.Equal(t, []string{domain.KindNext, domain.KindLink}, actions)
	assert.Equal(t, 1, freeText)
}

func TestEncodeURIComponent(t *testing.T) {
	tests := map[string]string{
		"abc-_.!~*'()": "abc-_.!~*'()",
		"a b":          "a%20b",
		"a+b&c=d/e?":   "a%2Bb%26c%3Dd%2Fe%3F",
		"Olá Ildino":   "Ol%C3%A1%20Ildino",
		"😅":            "%F0%9F%98%85",
	}
	for in, want := range tests {
		assert.Equal(t, want, runtime.EncodeURIComponent(in), in)
	}
}
