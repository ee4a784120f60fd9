package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/carpintaria/internal/runtime"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *Server {
	g := domain.NewGraph("start")
	g.Nodes["start"] = &domain.Node{ID: "start", Message: "Olá!", Options: []domain.Option{
		{Label: "Plataformas", Action: domain.Next{NodeID: "platforms"}},
		{Label: "Eventos", Action: domain.Navigate{URL: "Txiling.html"}},
	}}
	g.Nodes["platforms"] = &domain.Node{ID: "platforms", Message: "Qual lhe interessa?", Options: []domain.Option{
		{Label: "Voltar", Action: domain.Next{NodeID: "start"}},
	}}
	return NewServer(runtime.NewEngine(g))
}

func TestTools_Conversation(t *testing.T) {
	s := testServer()
	ctx := context.Background()

	opened, err := s.handleOpen(ctx, mcp.CallToolRequest{}, openArgs{})
	require.NoError(t, err)
	require.NotEmpty(t, opened.SessionID)
	assert.Equal(t, "start", opened.State.CurrentNodeID)

	selected, err := s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: opened.SessionID, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "platforms", selected.State.CurrentNodeID)
	assert.Equal(t, int64(500), selected.TypingDelayMs)

	back, err := s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: opened.SessionID, Index: 0})
	require.NoError(t, err)
	last, _ := back.State.LastMessage()
	assert.Equal(t, "Olá!", last.Text)

	nav, err := s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: opened.SessionID, Index: 1})
	require.NoError(t, err)
	require.Len(t, nav.Actions, 1)
	assert.Equal(t, domain.ActionNavigate, nav.Actions[0].Type)
	assert.Equal(t, "Txiling.html", nav.Actions[0].URL())

	msg, err := s.handleMessage(ctx, mcp.CallToolRequest{}, messageArgs{SessionID: opened.SessionID, Text: "olá?"})
	require.NoError(t, err)
	last, _ = msg.State.LastMessage()
	assert.Equal(t, runtime.DeflectionMessage, last.Text)
}

func TestTools_Errors(t *testing.T) {
	s := testServer()
	ctx := context.Background()

	_, err := s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleMessage(ctx, mcp.CallToolRequest{}, messageArgs{})
	assert.Error(t, err)

	opened, err := s.handleOpen(ctx, mcp.CallToolRequest{}, openArgs{SessionID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", opened.SessionID)

	_, err = s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: "fixed", Index: 5})
	assert.ErrorIs(t, err, domain.ErrOptionNotAvailable)
}

func TestResource_Graph(t *testing.T) {
	s := testServer()

	contents, err := s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, GraphURI, text.URI)

	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(text.Text), &g))
	assert.Equal(t, "start", g.Entry)
	assert.Len(t, g.Nodes, 2)
}
