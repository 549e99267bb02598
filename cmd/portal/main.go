package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultacerta/portal/internal/config"
	"github.com/consultacerta/portal/internal/platform/guard"
)

func main() {
	root := newRootCmd()
	err := root.Execute()
	if err == nil {
		return
	}
	os.Exit(report(root.ErrOrStderr(), err))
}

// cli carries the app built by the root pre-run to every subcommand.
type cli struct {
	app     *app
	verbose bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Consulta Certa patient portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(serveCmd(c))
	root.AddCommand(loginCmd(c), logoutCmd(c), whoamiCmd(c), registerCmd(c))
	root.AddCommand(remindersCmd(c), surveyCmd(c), companionCmd(c), rateCmd(c))
	root.AddCommand(guidesCmd(c), contactsCmd(c), ubsCmd(c))
	return root
}

// setup loads configuration, builds the app, restores the session and
// applies the command's access level. Commands without an access
// annotation, such as help or command groups, skip it.
func (c *cli) setup(cmd *cobra.Command) error {
	raw, annotated := cmd.Annotations[guard.Annotation]
	if !annotated {
		return nil
	}
	access, err := guard.ParseAccess(raw)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out, level := io.Writer(os.Stderr), zerolog.WarnLevel
	if cmd.Name() == "serve" {
		out, level = os.Stdout, zerolog.InfoLevel
	}
	if c.verbose {
		level = zerolog.DebugLevel
	}
	logger := newLogger(out, cfg.IsDev()).Level(level)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if err := a.sessions.Restore(cmd.Context()); err != nil {
		a.Close()
		return fmt.Errorf("restore session: %w", err)
	}
	// PersistentPostRun is skipped when the pre-run fails.
	if err := guard.Check(cmd.Context(), a.sessions, access); err != nil {
		a.Close()
		return err
	}
	c.app = a
	return nil
}

func newLogger(out io.Writer, dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func withAccess(cmd *cobra.Command, access guard.Access) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[guard.Annotation] = access.String()
	return cmd
}

// report prints err for the terminal and returns the exit status.
func report(w io.Writer, err error) int {
	var redirect *guard.Redirect
	switch {
	case errors.As(err, &redirect) && redirect.To == guard.HomeRoute:
		fmt.Fprintln(w, "Você já está conectado. Use `portal logout` para trocar de conta.")
		return 0
	case errors.As(err, &redirect):
		fmt.Fprintln(w, "Entre com `portal login` para continuar.")
		return 1
	case errors.Is(err, errFieldErrors):
		return 2
	case errors.Is(err, errServer):
		return 1
	}
	fmt.Fprintln(w, "erro:", err)
	return 1
}
