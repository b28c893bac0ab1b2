package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/megavault/internal/client/client"
	"github.com/dmitrijs2005/megavault/internal/client/config"
	"github.com/dmitrijs2005/megavault/internal/client/services"
)

type App struct {
	config   *config.Config
	api      *client.Client
	uploader *services.Uploader
	reader   *bufio.Reader
	out      io.Writer
	email    string
	// prefix is prepended to keys typed by the user (folder mode).
	prefix string
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	api := client.New(c.ServerURL, &http.Client{Timeout: c.RequestTimeout})

	return &App{
		config:   c,
		api:      api,
		uploader: services.NewUploader(api, c.PartSize, c.Concurrency),
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

// qualify turns a key typed by the user into the key the server expects.
func (a *App) qualify(key string) string {
	key = strings.TrimLeft(key, "/")
	if strings.HasPrefix(key, a.prefix) {
		return key
	}
	return a.prefix + key
}

func (a *App) getStatus() string {
	if a.email == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.email)
}

// Run greets the user, asks for credentials and enters the REPL.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to MegaVault CLI (type 'help' for commands)")

	if err := a.api.Ping(ctx); err != nil {
		fmt.Fprintf(a.out, "warning: server at %s is not healthy: %v\n", a.config.ServerURL, err)
	}

	if err := a.Login(ctx); err != nil {
		fmt.Fprintln(a.out, "error:", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
