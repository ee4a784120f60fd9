package dsl_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/carpintaria"
	"github.com/aretw0/carpintaria/internal/validator"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/dsl"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := dsl.New()

	b.Add("start").
		Say("Olá!").
		Go("Serviços", "services").
		Message("WhatsApp", "Olá, quero saber mais.")

	b.Add("services").
		Say("Temos soluções incríveis!").
		Link("Loja", "https://example.com/loja").
		Navigate("Site", "/static/Entrada.html").
		Go("Voltar", "start")

	loader, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if loader.EntryNode() != "start" {
		t.Errorf("Expected entry 'start', got '%s'", loader.EntryNode())
	}

	raw, err := loader.GetNode("services")
	if err != nil {
		t.Fatalf("GetNode('services') failed: %v", err)
	}
	var node domain.Node
	if err := json.Unmarshal(raw, &node); err != nil {
		t.Fatalf("Failed to unmarshal services node: %v", err)
	}
	if node.Message != "Temos soluções incríveis!" {
		t.Errorf("Unexpected message '%s'", node.Message)
	}
	if len(node.Options) != 3 {
		t.Fatalf("Expected 3 options, got %d", len(node.Options))
	}
	if link, ok := node.Options[0].Action.(domain.OpenLink); !ok || link.URL != "https://example.com/loja" {
		t.Errorf("Expected OpenLink action, got %#v", node.Options[0].Action)
	}
	if _, ok := node.Options[1].Action.(domain.Navigate); !ok {
		t.Errorf("Expected Navigate action, got %#v", node.Options[1].Action)
	}
	if next, ok := node.Options[2].Action.(domain.Next); !ok || next.NodeID != "start" {
		t.Errorf("Expected Next(start), got %#v", node.Options[2].Action)
	}
}

func TestBuilder_RunsOnEngine(t *testing.T) {
	b := dsl.New().Entry("home")
	b.Add("home").
		Say("Bem-vindo").
		Go("Mais", "more").
		Add("more").
		Say("Mais detalhes").
		Go("Voltar", "home")

	loader, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	engine, err := carpintaria.New(carpintaria.WithLoader(loader))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	step, err := engine.Open(context.Background(), domain.NewConversation("dsl"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	last, ok := step.State.LastMessage()
	if !ok || last.Text != "Bem-vindo" {
		t.Errorf("Expected entry message 'Bem-vindo', got %#v", last)
	}
}

func TestBuilder_RejectsDanglingLinks(t *testing.T) {
	b := dsl.New()
	b.Add("start").Say("Olá").Go("Perdido", "nowhere")

	loader, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	_, err = carpintaria.New(carpintaria.WithLoader(loader))
	var aggr *validator.AggregateError
	if !errors.As(err, &aggr) {
		t.Fatalf("Expected AggregateError, got %v", err)
	}
	if len(aggr.Errors) != 1 {
		t.Errorf("Expected 1 validation error, got %d", len(aggr.Errors))
	}
}

func TestBuilder_MissingEntry(t *testing.T) {
	b := dsl.New()
	b.Add("other").Say("Olá").Terminal()

	if _, err := b.Build(); err == nil {
		t.Error("Expected error for a missing entry node")
	}
}
