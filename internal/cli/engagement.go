package cli

import (
	"fmt"
	"strings"

	"unheard/internal/models"
	"unheard/internal/service"

	"github.com/spf13/cobra"
)

var reactionNames = map[string]models.ReactionType{
	"heart":  models.ReactionHeart,
	"love":   models.ReactionHeart,
	"thumbs": models.ReactionThumbs,
	"like":   models.ReactionThumbs,
	"laugh":  models.ReactionLaugh,
	"cry":    models.ReactionCry,
	"sad":    models.ReactionCry,
	"fire":   models.ReactionFire,
}

// parseReaction accepts either the emoji or a short name such as "fire".
func parseReaction(s string) (models.ReactionType, error) {
	if rt := models.ReactionType(s); rt.Valid() {
		return rt, nil
	}
	if rt, ok := reactionNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rt, nil
	}
	return "", models.NewValidationError(fmt.Sprintf("Unknown reaction %q (try heart, thumbs, laugh, cry or fire)", s))
}

func (a *app) reactCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "react <id> <reaction>",
		Short:   "Toggle a reaction on a confession",
		Long:    "Toggle a reaction. Running the same command again removes it.",
		GroupID: "engagement",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := parseReaction(args[1])
			if err != nil {
				return err
			}
			res, err := a.client.React(commandContext(cmd), args[0], rt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, res, func() {
				if res.Added {
					fmt.Fprintf(out, "Reacted %s\n", rt)
				} else {
					fmt.Fprintf(out, "Removed %s\n", rt)
				}
			})
		},
	}
}

func (a *app) reactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "reactions <id>",
		Short:   "Show reaction counts for a confession",
		GroupID: "engagement",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.client.Reactions(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, state, func() {
				fmt.Fprintln(out, reactionLine(state.Summaries()))
			})
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:     "comment <id> <text>",
		Short:   "Reply to a confession",
		GroupID: "engagement",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				username = a.client.Profile().Username
			}
			comment, err := a.client.Comment(commandContext(cmd), service.AddCommentInput{
				ConfessionID: args[0],
				Text:         args[1],
				Username:     username,
				Avatar:       a.client.Profile().Avatar,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, comment, func() { printComment(out, *comment) })
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name (defaults to your last one)")
	return cmd
}

func (a *app) commentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "comments <id>",
		Short:   "List comments on a confession",
		GroupID: "engagement",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comments, err := a.client.Comments(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, comments, func() {
				if len(comments) == 0 {
					fmt.Fprintln(out, "No comments.")
					return
				}
				for _, c := range comments {
					printComment(out, c)
				}
			})
		},
	}
}

func (a *app) uncommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "uncomment <confession-id> <comment-id>",
		Short:   "Delete one of your comments",
		GroupID: "engagement",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Uncomment(commandContext(cmd), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %s\n", args[1])
			return nil
		},
	}
}
