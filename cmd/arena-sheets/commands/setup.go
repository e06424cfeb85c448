package commands

import (
	"fmt"
	"log/slog"
	"net/url"

	"arena-sheets/internal/sheets"
	"arena-sheets/lib/configutil"
	"arena-sheets/lib/oauth"
	"arena-sheets/lib/serviceutil"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

// redirectUrl is a loopback address nothing listens on, the user copies
// the url out of the browser's address bar.
const redirectUrl = "http://localhost"

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(authorizeCmd)
}

func validUrl(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("expected an absolute url")
	}
	return nil
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Asks for the Arena and Google credentials and saves them to the local config.",
	Run: func(cmd *cobra.Command, args []string) {
		ui := input.DefaultUI()
		required := &input.Options{Required: true, Loop: true}

		baseUrl, err := ui.Ask("arena url (ex. https://arena.example.org):", &input.Options{
			Required:     true,
			Loop:         true,
			ValidateFunc: validUrl,
		})
		if err != nil {
			serviceutil.Fatal("read arena url", err)
		}
		username, err := ui.Ask("arena username:", required)
		if err != nil {
			serviceutil.Fatal("read arena username", err)
		}
		password, err := ui.Ask("arena password:", &input.Options{Required: true, Loop: true, Mask: true})
		if err != nil {
			serviceutil.Fatal("read arena password", err)
		}
		clientID, err := ui.Ask("google oauth client id:", required)
		if err != nil {
			serviceutil.Fatal("read google client id", err)
		}
		clientSecret, err := ui.Ask("google oauth client secret:", &input.Options{Required: true, Loop: true, Mask: true})
		if err != nil {
			serviceutil.Fatal("read google client secret", err)
		}
		templateID, err := ui.Ask("template spreadsheet id (empty for none):", &input.Options{})
		if err != nil {
			serviceutil.Fatal("read template spreadsheet id", err)
		}

		path, err := configutil.SetLocal(configPath, map[string]any{
			"arena.base_url":                 baseUrl,
			"arena.username":                 username,
			"arena.password":                 password,
			"google.client_id":               clientID,
			"google.client_secret":           clientSecret,
			"google.template_spreadsheet_id": templateID,
		})
		if err != nil {
			serviceutil.Fatal("save config", err)
		}
		slog.Info("saved credentials, run authorize next", "path", path)
	},
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Signs in to Google and saves a refresh token to the local config.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		if cfg.Google.ClientID == "" {
			serviceutil.Fatal("authorize", fmt.Errorf("google.client_id is not configured, run setup first"))
		}

		oauthCfg := sheets.OAuthConfig(cfg.Google.Credentials, redirectUrl)
		auth, err := oauth.Begin(ctx, oauthCfg)
		if err != nil {
			serviceutil.Fatal("begin authorization", err)
		}
		fmt.Printf("Open this url and allow access:\n\n%s\n\nThe browser then fails to load %s, copy the url from its address bar.\n\n", auth.URL, redirectUrl)

		ui := input.DefaultUI()
		redirect, err := ui.Ask("redirected url:", &input.Options{
			Required: true,
			Loop:     true,
			ValidateFunc: func(value string) error {
				_, err := oauth.CodeFromRedirect(value, auth.State)
				return err
			},
		})
		if err != nil {
			serviceutil.Fatal("read redirected url", err)
		}
		code, err := oauth.CodeFromRedirect(redirect, auth.State)
		if err != nil {
			serviceutil.Fatal("read authorization code", err)
		}

		token, err := oauth.Finish(ctx, oauthCfg, auth, code)
		if err != nil {
			serviceutil.Fatal("exchange authorization code", err)
		}
		path, err := configutil.SetLocal(configPath, map[string]any{
			"google.refresh_token": token.RefreshToken,
		})
		if err != nil {
			serviceutil.Fatal("save refresh token", err)
		}
		slog.Info("saved google refresh token", "path", path)
	},
}
