/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/naukovi-znahidky/client/internal/views"
	"github.com/spf13/cobra"
)

// fieldsCmd represents the fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields [slug]",
	Short: "Lists the scientific fields, or shows one",
	Args:  cobra.MaximumNArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		if len(args) == 1 {
			field, err := c.svc.Fields.Get(cmd.Context(), args[0])
			if err != nil {
				return fail(err, "Галузь не знайдено")
			}
			if jsonOutput {
				return c.printJSON(field)
			}
			fmt.Fprintf(c.out, "%s (%s)\n%s\nМатеріалів: %d\n", field.Name, field.Slug, field.Description, field.ContentsCount)
			return nil
		}

		list, err := c.svc.Fields.List(cmd.Context())
		if err != nil {
			return fail(err, "Не вдалося завантажити галузі")
		}
		if jsonOutput {
			return c.printJSON(list.Items)
		}
		rows := make([][]string, 0, list.Len())
		for _, f := range list.Items {
			rows = append(rows, []string{strconv.Itoa(f.ID), f.Slug, f.Name, strconv.Itoa(f.ContentsCount)})
		}
		return c.table([]string{"ID", "SLUG", "NAME", "CONTENTS"}, rows)
	}),
}

// institutionsCmd represents the institutions command
var institutionsCmd = &cobra.Command{
	Use:   "institutions",
	Short: "Searches and adds educational institutions",
}

var institutionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Finds institutions by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		st := views.NewInstitutionPicker(c.svc.Institutions).Search(cmd.Context(), strings.Join(args, " "))
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		for _, inst := range st.Data {
			fmt.Fprintf(c.out, "%d\t%s\n", inst.ID, inst.Name)
		}
		return nil
	}),
}

var institutionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Adds an institution",
	Args:  cobra.MinimumNArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		inst, err := views.NewInstitutionPicker(c.svc.Institutions).Create(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		if jsonOutput {
			return c.printJSON(inst)
		}
		fmt.Fprintf(c.out, "Added #%d %s.\n", inst.ID, inst.Name)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(fieldsCmd, institutionsCmd)
	institutionsCmd.AddCommand(institutionsSearchCmd, institutionsCreateCmd)
}
