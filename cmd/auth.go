/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/types"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string

	register types.Registration
	regInst  string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Signs in and stores the tokens",
	Long: `Signs in and stores the token pair for later commands. The password
is read from standard input when --password is not given. Usage:

	znahidky login --email olena@example.ua
`,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		password, err := passwordFrom(cmd, loginPassword)
		if err != nil {
			return err
		}
		return c.result(c.session.Login(cmd.Context(), loginEmail, password))
	}),
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the stored tokens",
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		if err := c.session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Signed out.")
		return nil
	}),
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Prints the signed-in user",
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		user, ok := c.session.CurrentUser()
		if !ok {
			return errors.New("not signed in")
		}
		if jsonOutput {
			return c.printJSON(user)
		}
		c.printUser(user)
		return nil
	}),
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Creates an account and signs in with it",
	Long: `Creates an account and signs in with it. Usage:

	znahidky register --email olena@example.ua --username olena \
		--role researcher --institution "КНУ імені Тараса Шевченка"
`,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		reg := register
		password, err := passwordFrom(cmd, reg.Password)
		if err != nil {
			return err
		}
		reg.Password = password
		if reg.PasswordConfirm == "" {
			reg.PasswordConfirm = password
		}
		reg.Institution = types.InstitutionRef{Name: strings.TrimSpace(regInst)}
		return c.result(c.session.Register(cmd.Context(), reg))
	}),
}

// passwordFrom returns the flag value or the first line of stdin.
func passwordFrom(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// result prints who is signed in after a successful session operation.
func (c *cli) result(res session.Result) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	if user, ok := c.session.CurrentUser(); ok {
		fmt.Fprintf(c.out, "Signed in as %s <%s>.\n", user.Username, user.Email)
	}
	return nil
}

func (c *cli) printUser(u types.User) {
	fmt.Fprintf(c.out, "%s (#%d)", u.Username, u.ID)
	if u.IsVerified {
		fmt.Fprint(c.out, " ✔")
	}
	fmt.Fprintln(c.out)
	if u.FullName != "" {
		fmt.Fprintln(c.out, u.FullName)
	}
	if u.Email != "" {
		fmt.Fprintln(c.out, u.Email)
	}
	line := u.Role.Label()
	if inst := u.Institution.String(); inst != "" {
		line += " · " + inst
	}
	if u.EducationLevel != "" {
		line += " · " + u.EducationLevel.Label()
	}
	fmt.Fprintln(c.out, line)
	fmt.Fprintf(c.out, "Підписників: %d · Підписок: %d\n", u.FollowersCount, u.FollowingCount)
	for _, f := range []struct{ label, value string }{
		{"Про себе", u.Bio},
		{"Наукові інтереси", u.ScientificInterests},
		{"Публікації", u.Publications},
		{"ORCID", u.ORCID},
		{"Google Scholar", u.GoogleScholar},
	} {
		if f.value != "" {
			fmt.Fprintf(c.out, "%s: %s\n", f.label, f.value)
		}
	}
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")

	f := registerCmd.Flags()
	f.StringVar(&register.Email, "email", "", "account email")
	f.StringVar(&register.Username, "username", "", "public username")
	f.StringVar(&register.Password, "password", "", "password, at least 8 characters")
	f.StringVar(&register.PasswordConfirm, "password-confirm", "", "password again (defaults to --password)")
	f.StringVar((*string)(&register.Role), "role", string(types.RoleStudent), "student, teacher or researcher")
	f.StringVar((*string)(&register.EducationLevel), "education-level", "", "incomplete_secondary, secondary, bachelor, master, phd or doctor")
	f.StringVar(&regInst, "institution", "", "institution name")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("username")
}
