package carpintaria_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/carpintaria"
	"github.com/aretw0/carpintaria/internal/validator"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultGraph(t *testing.T) {
	eng, err := carpintaria.New()
	require.NoError(t, err)
	assert.Nil(t, eng.Loader())

	ctx := context.Background()
	step, err := eng.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	last, ok := step.State.LastMessage()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(last.Text, "Olá! 👋 Bem-vindo à Carpintaria Digital."))

	// 🚀 Ver Plataformas
	sel, err := eng.Select(ctx, step.State, 0)
	require.NoError(t, err)
	require.NotNil(t, sel.Deferred)
	assert.Equal(t, 500*time.Millisecond, sel.Deferred.Delay)

	next, applied, err := eng.Apply(ctx, sel.State, sel.Deferred)
	require.NoError(t, err)
	require.True(t, applied)
	last, _ = next.LastMessage()
	assert.Equal(t, "Temos soluções incríveis! Qual lhe interessa?", last.Text)
}

func TestNew_Options(t *testing.T) {
	eng, err := carpintaria.New(
		carpintaria.WithTypingDelay(10*time.Millisecond),
		carpintaria.WithRecipient("351910000000"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	step, err := eng.Open(ctx, domain.NewConversation("s1"))
	require.NoError(t, err)

	// 💰 Consultoria -> Sim, no WhatsApp
	sel, err := eng.Select(ctx, step.State, 1)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, sel.Deferred.Delay)
	state, _, err := eng.Apply(ctx, sel.State, sel.Deferred)
	require.NoError(t, err)

	sel, err = eng.Select(ctx, state, 0)
	require.NoError(t, err)
	require.Len(t, sel.Actions, 1)
	assert.True(t, strings.HasPrefix(sel.Actions[0].URL(), "https://wa.me/351910000000?text=Ol%C3%A1!%20Quero"))
}

func TestNew_GraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entry: hello
nodes:
  hello:
    message: "Oi"
    options:
      - text: "De novo"
        next: hello
`), 0o644))

	eng, err := carpintaria.New(carpintaria.WithGraphFile(path))
	require.NoError(t, err)
	assert.Equal(t, "hello", eng.Graph().Entry)
	assert.NotNil(t, eng.Loader())
}

func TestNew_RejectsDanglingEdges(t *testing.T) {
	loader, err := memory.NewFromNodes(domain.Node{
		ID:      "start",
		Message: "Olá",
		Options: []domain.Option{{Label: "Ir", Action: domain.Next{NodeID: "nowhere"}}},
	})
	require.NoError(t, err)

	_, err = carpintaria.New(carpintaria.WithLoader(loader))
	require.Error(t, err)

	var agg *validator.AggregateError
	assert.ErrorAs(t, err, &agg)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(carpintaria.Version))
}
