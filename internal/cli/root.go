// Package cli implements the unheard command-line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"unheard/internal/client"
	"unheard/internal/identity"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL = "http://localhost:8375"
	keystoreFile  = "identity.json"
)

// Options lets tests inject transport and storage.
type Options struct {
	HTTPClient *http.Client
	Keystore   identity.Keystore
}

// app carries state shared by every subcommand.
type app struct {
	opts   Options
	cfg    *viper.Viper
	client *client.Client
}

// NewRootCommand builds the command tree. Configuration comes from flags,
// then UNHEARD_* environment variables, then defaults.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts, cfg: viper.New()}
	a.cfg.SetEnvPrefix("UNHEARD")
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.cfg.AutomaticEnv()
	a.cfg.SetDefault("api-url", defaultAPIURL)
	a.cfg.SetDefault("timeout", 15*time.Second)

	root := &cobra.Command{
		Use:   "unheard",
		Short: "Share and read anonymous confessions",
		Long: `unheard - a command-line client for anonymous confessions.

Your device gets a random id on first use; it identifies what you wrote so
only you can edit or delete it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("api-url", defaultAPIURL, "API base URL (env UNHEARD_API_URL)")
	flags.String("home", "", "directory holding the device identity (env UNHEARD_HOME)")
	flags.Duration("timeout", 15*time.Second, "request timeout")
	flags.Bool("json", false, "print raw JSON")
	for _, name := range []string{"api-url", "home", "timeout", "json"} {
		_ = a.cfg.BindPFlag(name, flags.Lookup(name))
	}

	root.AddGroup(
		&cobra.Group{ID: "confessions", Title: "Confession Commands:"},
		&cobra.Group{ID: "engagement", Title: "Reaction and Comment Commands:"},
		&cobra.Group{ID: "account", Title: "Account Commands:"},
	)

	root.AddCommand(
		a.postCmd(), a.feedCmd(), a.showCmd(), a.editCmd(), a.deleteCmd(), a.topicsCmd(), a.statsCmd(),
		a.reactCmd(), a.reactionsCmd(), a.commentCmd(), a.commentsCmd(), a.uncommentCmd(),
		a.whoamiCmd(), a.signoutCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCommand(Options{})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

func (a *app) init() error {
	if a.client != nil {
		return nil
	}

	store := a.opts.Keystore
	if store == nil {
		home, err := a.home()
		if err != nil {
			return err
		}
		store = identity.NewFileKeystore(filepath.Join(home, keystoreFile))
	}

	httpClient := a.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: a.cfg.GetDuration("timeout")}
	}

	api := client.NewAPI(a.cfg.GetString("api-url"), httpClient)
	a.client = client.New(api, identity.NewProvider(store, api), nil)
	return nil
}

func (a *app) home() (string, error) {
	if home := a.cfg.GetString("home"); home != "" {
		return home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate a config directory, set --home: %w", err)
	}
	return filepath.Join(dir, "unheard"), nil
}

func (a *app) jsonOutput() bool {
	return a.cfg.GetBool("json")
}

// emit prints v as indented JSON when --json is set, otherwise calls text.
func (a *app) emit(w io.Writer, v any, text func()) error {
	if !a.jsonOutput() {
		text()
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
