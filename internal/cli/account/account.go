package account

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	errs "github.com/julianstephens/tally/internal/errors"
)

type AuthCmd struct {
	Login  LoginCmd  `cmd:"" help:"Sign in with email and password."`
	Signup SignupCmd `cmd:"" help:"Create an account."`
	Logout LogoutCmd `cmd:"" help:"Sign out and forget the saved session."`
	Status StatusCmd `cmd:"" help:"Show who is signed in."`
	Google GoogleCmd `cmd:"" help:"Print the Google sign-in URL."`
}

// Credentials are read from flags, then the environment, then a prompt.
type Credentials struct {
	Email    string `help:"Account email." env:"TALLY_EMAIL"`
	Password string `help:"Account password." env:"TALLY_PASSWORD"`
}

// prompt asks for whatever is missing; replaced in tests.
var prompt = func(c *Credentials) error {
	var fields []huh.Field
	if c.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&c.Email))
	}
	if c.Password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&c.Password))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func (c *Credentials) resolve() error {
	if c.Email != "" && c.Password != "" {
		return nil
	}
	if err := prompt(c); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("cancelled")
		}
		return err
	}
	return nil
}

// authError keeps the auth service's message verbatim.
func authError(err error) error {
	return errors.New(errs.UserMessage(err, err.Error()))
}

type LoginCmd struct {
	Credentials `embed:""`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	if err := c.resolve(); err != nil {
		return err
	}
	s, err := ctx.Sessions.SignIn(context.Background(), c.Email, c.Password)
	if err != nil {
		return authError(err)
	}
	fmt.Printf("Signed in as %s\n", s.User.Email)
	return nil
}

type SignupCmd struct {
	Credentials `embed:""`
}

func (c *SignupCmd) Run(ctx *cli.Context) error {
	if err := c.resolve(); err != nil {
		return err
	}
	s, err := ctx.Sessions.SignUp(context.Background(), c.Email, c.Password)
	if err != nil {
		return authError(err)
	}
	fmt.Printf("Created account and signed in as %s\n", s.User.Email)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	s, err := ctx.Sessions.Current(bg)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	if err := ctx.Sessions.SignOut(bg); err != nil {
		return authError(err)
	}
	fmt.Printf("Signed out %s\n", s.User.Email)
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Sessions.Current(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Backend: %s\n", ctx.Store.Location())
	if s == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("Signed in as %s (user %s)\n", s.User.Email, s.User.ID)
	fmt.Printf("Access token valid until %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

type GoogleCmd struct {
	RedirectTo string `help:"Where the provider sends the browser afterwards."`
}

func (c *GoogleCmd) Run(ctx *cli.Context) error {
	u, err := ctx.Sessions.SignInWithOAuth(context.Background(), constants.OAuthProviderGoogle, c.RedirectTo)
	if err != nil {
		return authError(err)
	}
	fmt.Fprintln(os.Stderr, "Open this URL in your browser to continue:")
	fmt.Println(u)
	return nil
}
