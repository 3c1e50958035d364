package cli

import (
	"errors"
	"fmt"
	"strings"

	"unheard/internal/client"
	"unheard/internal/models"
	"unheard/internal/service"

	"github.com/spf13/cobra"
)

func (a *app) postCmd() *cobra.Command {
	var (
		tags      []string
		mood      string
		topic     string
		username  string
		avatar    string
		react     string
		anonymous bool
	)
	cmd := &cobra.Command{
		Use:     "post <text>",
		Short:   "Share a confession",
		Long:    "Share a confession of at least ten words. The username and avatar of your last post are reused unless you pass new ones.",
		GroupID: "confessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := a.client.Profile()
			if username == "" {
				username = profile.Username
			}
			if avatar == "" {
				avatar = profile.Avatar
			}
			in := service.CreateConfessionInput{
				Text:      args[0],
				Tags:      tags,
				Mood:      mood,
				Topic:     topic,
				Username:  username,
				Avatar:    avatar,
				Anonymous: anonymous || username == "",
			}
			if react != "" {
				rt, err := parseReaction(react)
				if err != nil {
					return err
				}
				in.InitialReaction = rt
			}

			posted, err := a.client.Post(commandContext(cmd), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, posted, func() {
				fmt.Fprintln(out, "Posted.")
				printConfession(out, *posted, false)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag from the catalog (repeatable)")
	cmd.Flags().StringVarP(&mood, "mood", "m", "", "mood emoji")
	cmd.Flags().StringVar(&topic, "topic", "", "topic name")
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name (defaults to your last one)")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL (defaults to your last one)")
	cmd.Flags().StringVar(&react, "react", "", "react to your own post right away")
	cmd.Flags().BoolVarP(&anonymous, "anonymous", "a", false, "post as Anonymous")
	return cmd
}

func (a *app) feedCmd() *cobra.Command {
	var q client.ListQuery
	cmd := &cobra.Command{
		Use:     "feed",
		Aliases: []string{"ls"},
		Short:   "List recent confessions",
		GroupID: "confessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tag := strings.ToLower(strings.TrimSpace(q.Filter.Tag)); tag != "" && !strings.HasPrefix(tag, "#") {
				q.Filter.Tag = "#" + tag
			}
			items, err := a.client.Feed(commandContext(cmd), q)
			if errors.Is(err, client.ErrStaleResponse) {
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, items, func() {
				if len(items) == 0 {
					fmt.Fprintln(out, "Nothing here yet.")
					return
				}
				for i, item := range items {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printConfession(out, item, false)
				}
			})
		},
	}
	cmd.Flags().StringVar(&q.Filter.Tag, "tag", "", "only confessions with this tag")
	cmd.Flags().StringVar(&q.Filter.Topic, "topic", "", "only confessions in this topic")
	cmd.Flags().BoolVar(&q.Filter.Highlighted, "highlighted", false, "only highlighted confessions")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", service.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "skip this many confessions")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one confession with its comments",
		GroupID: "confessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.client.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, item, func() { printConfession(out, *item, true) })
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var (
		text   string
		tags   []string
		mood   string
		topic  string
		avatar string
	)
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Edit one of your confessions",
		GroupID: "confessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ConfessionPatch
			flags := cmd.Flags()
			if flags.Changed("text") {
				patch.Text = &text
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}
			if flags.Changed("mood") {
				patch.Mood = &mood
			}
			if flags.Changed("topic") {
				patch.Topic = &topic
			}
			if flags.Changed("avatar") {
				patch.Avatar = &avatar
			}

			item, err := a.client.Edit(commandContext(cmd), args[0], patch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, item, func() {
				fmt.Fprintln(out, "Updated.")
				printConfession(out, *item, false)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "replace tags (repeatable)")
	cmd.Flags().StringVarP(&mood, "mood", "m", "", "new mood")
	cmd.Flags().StringVar(&topic, "topic", "", "new topic")
	cmd.Flags().StringVar(&avatar, "avatar", "", "new avatar URL")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete your confessions",
		GroupID: "confessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, id := range args {
				if err := a.client.Delete(commandContext(cmd), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(out, "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func (a *app) topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "topics",
		Short:   "List topics with confession counts",
		GroupID: "confessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topics, err := a.client.Topics(commandContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, topics, func() {
				if len(topics) == 0 {
					fmt.Fprintln(out, "No topics yet.")
					return
				}
				for _, t := range topics {
					fmt.Fprintf(out, "%s %-20s %d\n", t.Icon, t.Name, t.Count)
				}
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Short:   "Show community totals",
		GroupID: "confessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Stats(commandContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, stats, func() {
				fmt.Fprintf(out, "confessions: %d\n", stats.TotalConfessions)
				fmt.Fprintf(out, "voices:      %d\n", stats.TotalUsers)
				fmt.Fprintf(out, "connections: %d\n", stats.TotalConnections)
			})
		},
	}
}
