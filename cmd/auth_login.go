package cmd

import (
	"context"
	"errors"
	"net/url"

	"github.com/spf13/cobra"

	"disqusctl/internal/authui"
	"disqusctl/internal/cli"
	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

// Login-specific flags
var (
	loginNoBrowser bool
	loginForce     bool
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize disqusctl with your Disqus account",
	Long: `Run the Disqus OAuth2 authorization-code flow.

For http://localhost or http://127.0.0.1 redirect URIs a one-shot callback
server receives the redirect and the browser is opened automatically. For
any other redirect URI the authorization URL is printed and you paste the
URL Disqus redirected you to.

Examples:
  disqusctl auth login                 # Open the browser and wait
  disqusctl auth login --no-browser    # Only print the authorization URL
  disqusctl auth login --force         # Replace an existing identity`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Log in again even when an identity is stored")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.client.IsAuthenticated() && !loginForce {
		authPrint(cmd, "Already logged in as %s. Use --force to log in again.\n", displayName(s.client))
		return nil
	}

	ui, err := authui.ForRedirect(s.config.Disqus.RedirectURI, authui.Options{
		NoBrowser: loginNoBrowser,
		Out:       cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	if _, ok := ui.(*authui.LoopbackUI); ok {
		ui = &spinnerUI{AuthorizationUI: ui, cmd: cmd}
	}

	if err := s.client.Authenticate(cmd.Context(), ui); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logging.Error("CLI", err, "Login failed")
		return &cli.AuthFailedError{Reason: err}
	}

	authPrint(cmd, "✓ Logged in to Disqus as %s\n", displayName(s.client))
	return nil
}

// displayName renders "username (user ID)", or just the ID when the
// identity carries no username.
func displayName(client *disqus.Client) string {
	if name := client.Username(); name != "" {
		return name + " (" + client.UserID() + ")"
	}
	return client.UserID()
}

// spinnerUI shows a spinner while the callback server waits for the
// browser redirect.
type spinnerUI struct {
	disqus.AuthorizationUI
	cmd *cobra.Command
}

func (u *spinnerUI) WaitForRedirect(ctx context.Context) (*url.URL, error) {
	spin := cli.StartSpinner(u.cmd.ErrOrStderr(), "Waiting for authorization in the browser...", quiet)
	redirect, err := u.AuthorizationUI.WaitForRedirect(ctx)
	if err != nil {
		spin.Fail("Authorization was not completed")
		return nil, err
	}
	spin.Succeed("Authorization received")
	return redirect, nil
}
