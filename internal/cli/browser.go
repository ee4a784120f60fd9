package cli

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/registry"
)

// BrowserDispatcher opens OPEN_WINDOW and NAVIGATE targets with the
// system URL handler.
func BrowserDispatcher() *registry.Registry {
	r := registry.NewRegistry()
	open := func(ctx context.Context, req domain.ActionRequest) error {
		return openURL(ctx, req.URL())
	}
	r.Register(domain.ActionOpenWindow, open)
	r.Register(domain.ActionNavigate, open)
	return r
}

func openURL(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("empty url")
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	return cmd.Start()
}
