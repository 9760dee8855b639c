/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/naukovi-znahidky/client/internal/views"
	"github.com/naukovi-znahidky/client/types"
	"github.com/spf13/cobra"
)

var (
	contentFilter types.ContentFilter
	contentIn     types.ContentInput
	contentFields []int
	contentPriv   bool
	replyTo       int
)

// contentsCmd represents the contents command
var contentsCmd = &cobra.Command{
	Use:     "contents",
	Aliases: []string{"content"},
	Short:   "Lists, shows and publishes content items",
}

var contentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists public content items",
	Long: `Lists public content items, newest first. Usage:

	znahidky contents list --type webinar --field fizyka --ordering -views_count
`,
	Args: cobra.NoArgs,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		list := views.NewContentList(c.svc.Contents, c.svc.Fields)
		st := list.SetFilter(cmd.Context(), contentFilter)
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		if err := c.contentTable(st.Data.Items); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "\n%d of %d", st.Data.Len(), st.Data.Count)
		if st.Data.HasNext() {
			fmt.Fprintf(c.out, ", next page: --page %d", max(contentFilter.Page, 1)+1)
		}
		fmt.Fprintln(c.out)
		return nil
	}),
}

var contentsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Lists your own items, private ones included",
	Args:  cobra.NoArgs,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		profile := views.NewProfile(c.session, c.svc.Contents)
		st, err := profile.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		return c.contentTable(st.Data.Items)
	}),
}

var contentsShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Shows an item with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d := views.NewContentDetail(c.svc.Contents, c.session, args[0])
		st := d.Load(cmd.Context())
		if st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if jsonOutput {
			return c.printJSON(st.Data)
		}
		c.printContent(st.Data)
		return nil
	}),
}

var contentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publishes a new item",
	Long: `Publishes a new item. Resources, webinars and lectures need a link.
Usage:

	znahidky contents create --type lecture --title "Квантова механіка" \
		--description "Вступна лекція" --link https://example.ua/l1 --field 3
`,
	Args: cobra.NoArgs,
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		ed := views.NewContentCreator(c.svc.Contents, c.svc.Fields, c.session, contentIn.ContentType)
		return c.submit(cmd, ed, func(in *types.ContentInput) {
			*in = contentIn
		})
	}),
}

var contentsUpdateCmd = &cobra.Command{
	Use:   "update <slug>",
	Short: "Changes your item; only the flags given are changed",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		ed := views.NewContentEditor(c.svc.Contents, c.svc.Fields, c.session, args[0])
		return c.submit(cmd, ed, func(in *types.ContentInput) {
			flags := cmd.Flags()
			if flags.Changed("type") {
				in.ContentType = contentIn.ContentType
			}
			if flags.Changed("title") {
				in.Title = contentIn.Title
			}
			if flags.Changed("description") {
				in.Description = contentIn.Description
			}
			if flags.Changed("link") {
				in.Link = contentIn.Link
			}
			if flags.Changed("keywords") {
				in.Keywords = contentIn.Keywords
			}
			if flags.Changed("status") {
				in.Status = contentIn.Status
			}
			if flags.Changed("field") {
				in.ScientificFieldIDs = contentFields
			}
			if flags.Changed("private") {
				in.IsPublic = !contentPriv
			}
			if flags.Changed("collaboration") {
				in.IsOpenForCollaboration = contentIn.IsOpenForCollaboration
			}
		})
	}),
}

// submit loads the editor, lets fill change its form and saves it.
func (c *cli) submit(cmd *cobra.Command, ed *views.ContentEditor, fill func(*types.ContentInput)) error {
	if err := ed.Load(cmd.Context()); err != nil {
		return fmt.Errorf("%s", views.Message(err))
	}
	contentIn.ScientificFieldIDs = contentFields
	contentIn.IsPublic = !contentPriv
	in := ed.Input()
	fill(&in)
	content, err := ed.Submit(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("%s", views.Message(err))
	}
	if jsonOutput {
		return c.printJSON(content)
	}
	fmt.Fprintf(c.out, "Saved %s.\n", content.Slug)
	return nil
}

var contentsDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Deletes your item",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d := views.NewContentDetail(c.svc.Contents, c.session, args[0])
		if st := d.Load(cmd.Context()); st.Failed() {
			return fmt.Errorf("%s", st.Message)
		}
		if err := d.Delete(cmd.Context()); err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		fmt.Fprintf(c.out, "Deleted %s.\n", args[0])
		return nil
	}),
}

var contentsLikeCmd = &cobra.Command{
	Use:   "like <slug>",
	Short: "Likes an item, or takes the like back",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d := views.NewContentDetail(c.svc.Contents, c.session, args[0])
		res, err := d.ToggleLike(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		if jsonOutput {
			return c.printJSON(res)
		}
		verb := "Unliked"
		if res.Liked() {
			verb = "Liked"
		}
		fmt.Fprintf(c.out, "%s, %d likes.\n", verb, res.LikesCount)
		return nil
	}),
}

var contentsCommentCmd = &cobra.Command{
	Use:   "comment <slug> <text>",
	Short: "Comments on an item",
	Long: `Comments on an item. With --reply-to the comment answers a top-level
comment; replies to replies are not possible. Usage:

	znahidky contents comment kvantova-mekhanika "Дякую!" --reply-to 12
`,
	Args: cobra.MinimumNArgs(2),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		d := views.NewContentDetail(c.svc.Contents, c.session, args[0])
		if replyTo > 0 {
			if st := d.Load(cmd.Context()); st.Failed() {
				return fmt.Errorf("%s", st.Message)
			}
		}
		comment, err := d.AddComment(cmd.Context(), strings.Join(args[1:], " "), replyTo)
		if err != nil {
			return fmt.Errorf("%s", views.Message(err))
		}
		if jsonOutput {
			return c.printJSON(comment)
		}
		fmt.Fprintf(c.out, "Comment #%d added.\n", comment.ID)
		return nil
	}),
}

var contentsCommentsCmd = &cobra.Command{
	Use:   "comments <slug>",
	Short: "Lists the comments of an item with their replies",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		list, err := c.svc.Contents.Comments(cmd.Context(), args[0])
		if err != nil {
			return fail(err, "Не вдалося завантажити коментарі")
		}
		if jsonOutput {
			return c.printJSON(list)
		}
		if list.Len() == 0 {
			fmt.Fprintln(c.out, "Коментарів ще немає.")
			return nil
		}
		c.printComments(list.Items)
		return nil
	}),
}

var contentsUncommentCmd = &cobra.Command{
	Use:   "uncomment <comment-id>",
	Short: "Deletes your comment and its replies",
	Args:  cobra.ExactArgs(1),
	RunE: withCLI(func(cmd *cobra.Command, c *cli, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 1 {
			return fmt.Errorf("invalid comment id %q", args[0])
		}
		if err := c.requireUser(); err != nil {
			return err
		}
		if err := c.svc.Contents.DeleteComment(cmd.Context(), id); err != nil {
			return fail(err, "Не вдалося видалити коментар")
		}
		fmt.Fprintf(c.out, "Comment #%d deleted.\n", id)
		return nil
	}),
}

func (c *cli) contentTable(items []types.Content) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		title := it.Title
		if !it.IsPublic {
			title += " (приватний)"
		}
		rows = append(rows, []string{
			it.Slug, it.ContentType.Label(), it.Status.Label(), title, it.Author.Username,
			strconv.Itoa(it.LikesCount), strconv.Itoa(it.ViewsCount), strconv.Itoa(it.CommentsCount),
		})
	}
	return c.table([]string{"SLUG", "TYPE", "STATUS", "TITLE", "AUTHOR", "LIKES", "VIEWS", "COMMENTS"}, rows)
}

func (c *cli) printContent(it types.Content) {
	fmt.Fprintf(c.out, "%s\n%s · %s", it.Title, it.ContentType.Label(), it.Status.Label())
	if it.IsOpenForCollaboration {
		fmt.Fprint(c.out, " · відкрито до співпраці")
	}
	fmt.Fprintf(c.out, "\n%s · %s · ♥ %d · 👁 %d\n\n", it.Author.Username, it.CreatedAt.Format("02.01.2006"), it.LikesCount, it.ViewsCount)
	fmt.Fprintln(c.out, it.Description)
	if it.Link != "" {
		fmt.Fprintf(c.out, "\n%s\n", it.Link)
	}
	if len(it.ScientificFields) > 0 {
		names := make([]string, len(it.ScientificFields))
		for i, f := range it.ScientificFields {
			names[i] = f.Name
		}
		fmt.Fprintf(c.out, "Галузі: %s\n", strings.Join(names, ", "))
	}
	if kw := it.KeywordList(); len(kw) > 0 {
		fmt.Fprintf(c.out, "Ключові слова: %s\n", strings.Join(kw, ", "))
	}
	fmt.Fprintf(c.out, "\nКоментарі (%d)\n", it.CommentsCount)
	c.printComments(it.Comments)
}

func (c *cli) printComments(comments []types.Comment) {
	for _, cm := range comments {
		fmt.Fprintf(c.out, "#%d %s: %s\n", cm.ID, cm.Author.Username, cm.Text)
		for _, r := range cm.Replies {
			fmt.Fprintf(c.out, "    #%d %s: %s\n", r.ID, r.Author.Username, r.Text)
		}
	}
}

func init() {
	rootCmd.AddCommand(contentsCmd)
	contentsCmd.AddCommand(contentsListCmd, contentsMineCmd, contentsShowCmd, contentsCreateCmd,
		contentsUpdateCmd, contentsDeleteCmd, contentsLikeCmd, contentsCommentCmd, contentsCommentsCmd, contentsUncommentCmd)

	lf := contentsListCmd.Flags()
	lf.StringVar(&contentFilter.Search, "search", "", "search in titles, descriptions and keywords")
	lf.StringVar(&contentFilter.FieldSlug, "field", "", "scientific field slug")
	lf.StringVar((*string)(&contentFilter.Status), "status", "", "idea, in_progress or completed")
	lf.StringVar((*string)(&contentFilter.ContentType), "type", "", "idea, resource, webinar or lecture")
	lf.IntVar(&contentFilter.Author, "author", 0, "author user id")
	lf.StringVar(&contentFilter.Ordering, "ordering", "", "created_at, views_count; prefix - for descending")
	lf.IntVar(&contentFilter.Page, "page", 1, "page number")

	for _, cmd := range []*cobra.Command{contentsCreateCmd, contentsUpdateCmd} {
		f := cmd.Flags()
		f.StringVar((*string)(&contentIn.ContentType), "type", string(types.ContentIdea), "idea, resource, webinar or lecture")
		f.StringVar(&contentIn.Title, "title", "", "title")
		f.StringVar(&contentIn.Description, "description", "", "description")
		f.StringVar(&contentIn.Link, "link", "", "link to the resource, webinar or lecture")
		f.StringVar(&contentIn.Keywords, "keywords", "", "comma separated keywords")
		f.StringVar((*string)(&contentIn.Status), "status", string(types.StatusIdea), "idea, in_progress or completed")
		f.IntSliceVar(&contentFields, "field", nil, "scientific field id, repeatable")
		f.BoolVar(&contentPriv, "private", false, "visible to you only")
		f.BoolVar(&contentIn.IsOpenForCollaboration, "collaboration", false, "open for collaboration")
	}

	contentsCommentCmd.Flags().IntVar(&replyTo, "reply-to", 0, "id of the top-level comment to answer")
}
