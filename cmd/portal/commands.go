package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultacerta/portal/internal/domain/companion"
	"github.com/consultacerta/portal/internal/domain/contact"
	"github.com/consultacerta/portal/internal/domain/content"
	"github.com/consultacerta/portal/internal/domain/feedback"
	"github.com/consultacerta/portal/internal/domain/health"
	"github.com/consultacerta/portal/internal/domain/locator"
	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/guard"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/platform/workflow"
)

var (
	errFieldErrors = errors.New("form has invalid fields")
	errServer      = errors.New("server unavailable")
)

// printResult writes the acknowledgment and field errors of a submission
// and turns the failing states into errors for the exit status.
func printResult(w io.Writer, res workflow.Result) error {
	if res.Ack != nil {
		fmt.Fprintln(w, res.Ack.Title)
		if res.Ack.Message != "" {
			fmt.Fprintln(w, res.Ack.Message)
		}
	}
	printFieldErrors(w, res.FieldErrors)
	switch res.State {
	case workflow.StateFieldError:
		return errFieldErrors
	case workflow.StateServerError:
		return errServer
	}
	return nil
}

func printFieldErrors(w io.Writer, fe validate.FieldErrors) {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, fe[f])
	}
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

func loginCmd(c *cli) *cobra.Command {
	var f patient.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with e-mail and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.patients.Login(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if sess, ok := c.app.sessions.Current(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Olá, %s!\n", sess.FirstName())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Email, "email", "", "e-mail")
	cmd.Flags().StringVar(&f.Password, "senha", "", "password")
	return withAccess(cmd, guard.AnonymousOnly)
}

func logoutCmd(c *cli) *cobra.Command {
	return withAccess(&cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.patients.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sessão encerrada.")
			return nil
		},
	}, guard.Restricted)
}

func whoamiCmd(c *cli) *cobra.Command {
	return withAccess(&cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.app.patients.Profile()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n", v.Name, v.Email)
			fmt.Fprintf(w, "Telefone: %s\n", v.Phone)
			fmt.Fprintf(w, "Acompanhante: %s\n", yesNo(v.Companion))
			fmt.Fprintf(w, "Dados de saúde: %s\n", yesNo(v.HealthData))
			return nil
		},
	}, guard.Restricted)
}

func registerCmd(c *cli) *cobra.Command {
	var f patient.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.EmailConfirmation == "" {
				f.EmailConfirmation = f.Email
			}
			if f.PasswordConfirm == "" {
				f.PasswordConfirm = f.Password
			}
			res, err := c.app.patients.Register(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&f.Name, "nome", "", "full name")
	cmd.Flags().StringVar(&f.Phone, "telefone", "", "mobile phone")
	cmd.Flags().StringVar(&f.Email, "email", "", "e-mail")
	cmd.Flags().StringVar(&f.EmailConfirmation, "confirmar-email", "", "e-mail confirmation (defaults to --email)")
	cmd.Flags().StringVar(&f.Password, "senha", "", "password")
	cmd.Flags().StringVar(&f.PasswordConfirm, "confirmar-senha", "", "password confirmation (defaults to --senha)")
	cmd.Flags().BoolVar(&f.Companion, "acompanhante", false, "will register a companion")
	return withAccess(cmd, guard.AnonymousOnly)
}

// ---------------------------------------------------------------------------
// Restricted workflows
// ---------------------------------------------------------------------------

func remindersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "reminders", Short: "Consultation reminders"}

	list := withAccess(&cobra.Command{
		Use:   "list",
		Short: "List your consultations",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.app.reminders.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if l.Placeholder != "" {
				fmt.Fprintln(w, l.Placeholder)
				return nil
			}
			for _, it := range l.Items {
				fmt.Fprintf(w, "%s  %s\n", it.When, it.Specialty)
			}
			return nil
		},
	}, guard.Restricted)

	var f reminder.Form
	add := withAccess(&cobra.Command{
		Use:   "add",
		Short: "Schedule an e-mail reminder for a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.reminders.Create(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}, guard.Restricted)
	add.Flags().StringVar(&f.Specialty, "especialidade", "", "one of "+strings.Join(reminder.Specialties, ", "))
	add.Flags().StringVar(&f.ScheduledAt, "data", "", "consultation date, 2006-01-02T15:04")

	cmd.AddCommand(list, add)
	return cmd
}

func surveyCmd(c *cli) *cobra.Command {
	var f health.Form
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Answer the health survey for your active consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if p := c.app.survey.Open(); p.State != health.PromptOpen {
				fmt.Fprintln(w, "Você já respondeu o questionário de saúde.")
				return nil
			}
			res, _, err := c.app.survey.Submit(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(w, res)
		},
	}
	cmd.Flags().StringVar(&f.Age, "idade", "", "age in years")
	cmd.Flags().StringVar(&f.Sex, "sexo", "", "f or m")
	cmd.Flags().BoolVar(&f.Hypertension, "hipertensao", false, "has hypertension")
	cmd.Flags().BoolVar(&f.Diabetes, "diabetes", false, "has diabetes")
	cmd.Flags().BoolVar(&f.Alcohol, "alcool", false, "consumes alcohol")
	cmd.Flags().BoolVar(&f.Disability, "deficiencia", false, "has a disability")
	cmd.Flags().StringVar(&f.DisabilityType, "tipo-deficiencia", "", "disability type")
	return withAccess(cmd, guard.Restricted)
}

func companionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "companion", Short: "Companions"}

	var f companion.Form
	add := withAccess(&cobra.Command{
		Use:   "add",
		Short: "Register a companion",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.EmailConfirmation == "" {
				f.EmailConfirmation = f.Email
			}
			res, err := c.app.companions.Register(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}, guard.Restricted)
	add.Flags().StringVar(&f.Name, "nome", "", "companion name")
	add.Flags().StringVar(&f.Phone, "telefone", "", "companion phone")
	add.Flags().StringVar(&f.Email, "email", "", "companion e-mail")
	add.Flags().StringVar(&f.EmailConfirmation, "confirmar-email", "", "e-mail confirmation (defaults to --email)")
	add.Flags().StringVar(&f.Relationship, "parentesco", "", "one of "+strings.Join(companion.Relationships, ", "))

	cmd.AddCommand(add)
	return cmd
}

// ---------------------------------------------------------------------------
// Public
// ---------------------------------------------------------------------------

func rateCmd(c *cli) *cobra.Command {
	var f feedback.Form
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Rate a specialty",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.ratings.Rate(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			// The rating is sent in the background; let it finish before exit.
			return c.app.ratings.Wait(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&f.Specialty, "especialidade", "", "one of "+strings.Join(reminder.Specialties, ", "))
	cmd.Flags().IntVar(&f.Score, "nota", 0, "score from 1 to 5")
	cmd.Flags().StringVar(&f.Comment, "comentario", "", "optional comment")
	return withAccess(cmd, guard.Public)
}

func guidesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "guides", Short: "Patient guides"}

	var category string
	list := withAccess(&cobra.Command{
		Use:   "list",
		Short: "List guides by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cat := c.app.guides.Catalog(cmd.Context())
			if cat.Placeholder != "" {
				fmt.Fprintln(w, cat.Placeholder)
				return nil
			}
			buckets := cat.Buckets
			if category != "" {
				want, ok := content.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				b, _ := c.app.guides.Bucket(cmd.Context(), want)
				buckets = []content.Bucket{b}
			}
			for _, b := range buckets {
				fmt.Fprintf(w, "%s\n", b.Label)
				for _, g := range b.Guides {
					fmt.Fprintf(w, "  %-40s %s\n", g.Title, g.Slug)
				}
			}
			return nil
		},
	}, guard.Public)
	list.Flags().StringVar(&category, "category", "", "p, t, i or a bucket label")

	show := withAccess(&cobra.Command{
		Use:   "show <slug>",
		Short: "Print one guide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.app.guides.Find(cmd.Context(), args[0])
			if errors.Is(err, content.ErrUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), content.Placeholder)
				return errServer
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, v.Title)
			if v.Published != "" {
				fmt.Fprintln(w, "Publicado em", v.Published)
			}
			fmt.Fprintln(w)
			for _, p := range v.Paragraphs {
				fmt.Fprintln(w, p)
				fmt.Fprintln(w)
			}
			return nil
		},
	}, guard.Public)

	cmd.AddCommand(list, show)
	return cmd
}

func contactsCmd(c *cli) *cobra.Command {
	cmd := withAccess(&cobra.Command{
		Use:   "contacts",
		Short: "List hospital contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.contacts.Load(cmd.Context())
			w := cmd.OutOrStdout()
			items := c.app.contacts.Carousel().Items()
			if len(items) == 0 {
				fmt.Fprintln(w, "Nenhum contato disponível.")
				return nil
			}
			for _, ct := range items {
				fmt.Fprintf(w, "%s\n  %s | %s\n  %s\n", ct.Name, ct.Email, ct.Phone, ct.Address())
			}
			return nil
		},
	}, guard.Public)

	var (
		f        contact.MessageForm
		useLogin bool
	)
	send := withAccess(&cobra.Command{
		Use:   "send",
		Short: "Send a question to a hospital contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if useLogin {
				f = c.app.contacts.Prefill(f)
			}
			res, err := c.app.contacts.Send(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}, guard.Public)
	send.Flags().StringVar(&f.Name, "nome", "", "your name")
	send.Flags().StringVar(&f.Email, "email", "", "your e-mail")
	send.Flags().BoolVar(&useLogin, "usar-login", false, "fill name and e-mail from the signed-in patient")
	send.Flags().StringVar(&f.Subject, "assunto", "", "subject")
	send.Flags().StringVar(&f.Body, "conteudo", "", "message")
	send.Flags().StringVar(&f.Recipient, "destinatario", "", "contact name or e-mail")

	cmd.AddCommand(send)
	return cmd
}

func ubsCmd(c *cli) *cobra.Command {
	return withAccess(&cobra.Command{
		Use:   "ubs <cep>",
		Short: "Find basic health units near a CEP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			v, err := c.app.clinics.Search(cmd.Context(), locator.Form{CEP: args[0]})
			var fe validate.FieldErrors
			if errors.As(err, &fe) {
				printFieldErrors(w, fe)
				return errFieldErrors
			}
			var le *locator.LookupError
			if errors.As(err, &le) {
				fmt.Fprintln(w, le.Message)
				return errServer
			}
			if err != nil {
				return err
			}
			if v.Empty != "" {
				fmt.Fprintln(w, v.Empty)
				return nil
			}
			fmt.Fprintln(w, v.Heading)
			for _, cl := range v.Clinics {
				fmt.Fprintf(w, "  %s\n    %s", cl.Name, cl.Address)
				if cl.Distance != "" {
					fmt.Fprintf(w, " (%s)", cl.Distance)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}, guard.Public)
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}
