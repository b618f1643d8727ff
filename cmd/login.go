package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// isTerminal reports whether f is an interactive terminal.
var isTerminal = func(f any) bool {
	file, ok := f.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func newLoginCmd(a *app) *cobra.Command {
	var timeout time.Duration
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Open a visible browser on the persistent profile and wait for a manual sign-in",
		Long: `Opens the login page in a headed browser using the configured profile
directory and waits until the session is signed in. Credentials are typed by
you in the browser window; linkmcp never sees them. Later serve runs reuse
the stored session.`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			a.cfg.BrowserCfg.Headless = false
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.login(cmd, timeout)
		},
	}
	loginCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "how long to wait for the sign-in")
	loginCmd.Flags().String("profile-dir", "", "browser profile directory (overrides browser.profile_dir)")
	return loginCmd
}

func (a *app) login(cmd *cobra.Command, timeout time.Duration) error {
	ctx := cmd.Context()
	env, err := tools.Build(a.cfg, launcherFactory(a), a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tools: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), browserCloseTimeout)
		defer cancel()
		if err := env.Manager().Close(closeCtx); err != nil {
			a.logger.Warn("Error closing browser.", zap.Error(err))
		}
	}()

	out := cmd.ErrOrStderr()
	interactive := isTerminal(out)
	fmt.Fprintf(out, "Sign in at %s in the browser window (waiting up to %s).\n", a.cfg.Browser().LoginURL, timeout)

	url, err := env.AwaitLogin(ctx, timeout, func(p *detector.Problem) {
		if interactive {
			printWaiting(out, p)
		}
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(out, "Signed in. Session stored in %s (now at %s).\n", a.cfg.Browser().ProfileDir, url)
	return nil
}

func printWaiting(w io.Writer, p *detector.Problem) {
	switch p.Reason {
	case detector.ReasonLoginRequired:
		fmt.Fprintln(w, "  waiting for you to sign in...")
	case detector.ReasonCaptcha:
		fmt.Fprintln(w, "  a security check is showing; complete it in the browser.")
	default:
		fmt.Fprintf(w, "  waiting: %s\n", p.Hint)
	}
}
