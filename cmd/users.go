/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/naukovi-znahidky/client/internal/views"
	"github.com/naukovi-znahidky/client/types"
	"github.com/spf13/cobra"
)

var (
	userSearch string
	profileIn  types.ProfileUpdate
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "Finds, shows and follows users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists users, optionally matching --search",
	Args:  cobra.NoArgs,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		st := views.NewUserList(c.svc.Users).Search(cmd.Context(), userSearch)
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		rows := make([][]string, 0, st.Data.Len())
		for _, u := range st.Data.Items {
			rows = append(rows, []string{strconv.Itoa(u.ID), u.Username, u.Role.Label(), u.Institution.String(), strconv.Itoa(u.FollowersCount)})
		}
		return c.table([]string{"ID", "USERNAME", "ROLE", "INSTITUTION", "FOLLOWERS"}, rows)
	}),
}

var usersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Shows a user's profile and public items",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d, err := userDetail(c, args[0])
		if err != nil {
			return err
		}
		st := d.Load(cmd.Context())
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		c.printUser(st.Data)
		if d.IsFollowing() {
			fmt.Fprintln(c.out, "Ви підписані.")
		}
		if items := d.Contents(); items.Loaded() && items.Data.Len() > 0 {
			fmt.Fprintln(c.out)
			return c.contentTable(items.Data.Items)
		}
		return nil
	}),
}

var usersFollowCmd = &cobra.Command{
	Use:   "follow <id>",
	Short: "Follows a user, or stops following",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d, err := userDetail(c, args[0])
		if err != nil {
			return err
		}
		res, err := d.ToggleFollow(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		if jsonOutput {
			return c.printJSON(res)
		}
		if res.Following() {
			fmt.Fprintln(c.out, "Followed.")
		} else {
			fmt.Fprintln(c.out, "Unfollowed.")
		}
		return nil
	}),
}

var usersFollowersCmd = &cobra.Command{
	Use:   "followers <id>",
	Short: "Lists the users who follow a user",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		return c.userRefs(cmd, args[0], c.svc.Users.Followers)
	}),
}

var usersFollowingCmd = &cobra.Command{
	Use:   "following <id>",
	Short: "Lists the users a user follows",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		return c.userRefs(cmd, args[0], c.svc.Users.Following)
	}),
}

func (c *cli) userRefs(cmd *cobra.Command, arg string, load func(context.Context, int) (types.List[types.UserRef], error)) error {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid user id %q", arg)
	}
	list, err := load(cmd.Context(), id)
	if err != nil {
		return fail(err, "Не вдалося завантажити користувачів")
	}
	if jsonOutput {
		return c.printJSON(list)
	}
	rows := make([][]string, 0, list.Len())
	for _, u := range list.Items {
		rows = append(rows, []string{strconv.Itoa(u.ID), u.Username, u.Role.Label()})
	}
	return c.table([]string{"ID", "USERNAME", "ROLE"}, rows)
}

func userDetail(c *cli, arg string) (*views.UserDetail, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("invalid user id %q", arg)
	}
	return views.NewUserDetail(c.svc.Users, c.session, id), nil
}

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Shows or changes your profile",
	Long: `Shows your profile. Flags change the named fields and leave the rest
as they are. Usage:

	znahidky profile --bio "Досліджую квантові обчислення" --orcid 0000-0002-1825-0097
`,
	Args: cobra.NoArgs,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		profile := views.NewProfile(c.session, c.svc.Contents)
		if _, ok := profile.User(); !ok {
			return errors.New("not signed in")
		}

		update := profile.Form()
		flags := cmd.Flags()
		changed := false
		for name, apply := range map[string]func(){
			"username":             func() { update.Username = profileIn.Username },
			"bio":                  func() { update.Bio = profileIn.Bio },
			"scientific-interests": func() { update.ScientificInterests = profileIn.ScientificInterests },
			"publications":         func() { update.Publications = profileIn.Publications },
			"orcid":                func() { update.ORCID = profileIn.ORCID },
			"google-scholar":       func() { update.GoogleScholar = profileIn.GoogleScholar },
		} {
			if flags.Changed(name) {
				apply()
				changed = true
			}
		}
		if changed {
			if res := profile.Save(cmd.Context(), update); !res.Success {
				return errors.New(res.Error)
			}
		}

		user, _ := profile.User()
		if jsonOutput {
			return c.printJSON(user)
		}
		c.printUser(user)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(usersCmd, profileCmd)
	usersCmd.AddCommand(usersListCmd, usersShowCmd, usersFollowCmd, usersFollowersCmd, usersFollowingCmd)

	usersListCmd.Flags().StringVar(&userSearch, "search", "", "match username, full name or institution")

	f := profileCmd.Flags()
	f.StringVar(&profileIn.Username, "username", "", "public username")
	f.StringVar(&profileIn.Bio, "bio", "", "about you")
	f.StringVar(&profileIn.ScientificInterests, "scientific-interests", "", "research interests")
	f.StringVar(&profileIn.Publications, "publications", "", "publications")
	f.StringVar(&profileIn.ORCID, "orcid", "", "ORCID identifier")
	f.StringVar(&profileIn.GoogleScholar, "google-scholar", "", "Google Scholar profile link")
}
