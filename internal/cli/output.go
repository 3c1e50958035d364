package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"unheard/internal/models"
)

// describe turns an error into one line for the terminal.
func describe(err error) string {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Code {
	case models.CodePermissionDenied:
		return "you can only change what you wrote on this device"
	case models.CodeSessionUnavailable:
		return "could not reach the server to start a session, try again later"
	case models.CodeTransientStore:
		return "the server is temporarily unavailable, try again later"
	case models.CodeRateLimited:
		return "slow down, too many requests"
	default:
		return appErr.Message
	}
}

func printConfession(w io.Writer, c models.EnrichedConfession, withComments bool) {
	mine := ""
	if c.IsMine {
		mine = " (yours)"
	}
	highlight := ""
	if c.IsHighlighted {
		highlight = " ★"
	}
	fmt.Fprintf(w, "%s%s%s\n", c.ID, highlight, mine)
	fmt.Fprintf(w, "  %s · %s\n", c.Username, c.Timestamp.Local().Format(time.RFC822))
	if c.Topic != "" || c.Mood != "" {
		fmt.Fprintf(w, "  %s %s\n", strings.TrimSpace(c.Topic), moodLabel(c.Mood))
	}
	fmt.Fprintf(w, "  %s\n", c.Text)
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(c.Tags, " "))
	}
	if c.Enriched() {
		fmt.Fprintf(w, "  %s  💬 %d\n", reactionLine(c.Reactions), c.CommentsCount)
	}
	if withComments {
		for _, cm := range c.Comments {
			printComment(w, cm)
		}
	}
}

func moodLabel(mood string) string {
	if mood == "" {
		return ""
	}
	return "[" + mood + "]"
}

func reactionLine(summaries []models.ReactionSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		marker := ""
		if s.UserHasReacted {
			marker = "*"
		}
		parts = append(parts, fmt.Sprintf("%s %d%s", s.Type, s.Count, marker))
	}
	return strings.Join(parts, "  ")
}

func printComment(w io.Writer, c models.Comment) {
	mine := ""
	if c.IsMine {
		mine = " (yours)"
	}
	fmt.Fprintf(w, "    ↳ %s%s %s: %s\n", c.ID, mine, c.Username, c.Text)
}
