package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type whoami struct {
	DeviceID  string    `json:"device_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show this device's identity and session",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.client.Session(commandContext(cmd))
			if err != nil {
				return err
			}
			profile := a.client.Profile()
			info := whoami{
				DeviceID:  session.DeviceID,
				SessionID: session.ID,
				ExpiresAt: session.ExpiresAt,
				Username:  profile.Username,
				Avatar:    profile.Avatar,
			}
			out := cmd.OutOrStdout()
			return a.emit(out, info, func() {
				fmt.Fprintf(out, "device:   %s\n", info.DeviceID)
				fmt.Fprintf(out, "session:  %s (expires %s)\n", info.SessionID, info.ExpiresAt.Local().Format(time.RFC822))
				if info.Username != "" {
					fmt.Fprintf(out, "username: %s\n", info.Username)
				}
			})
		},
	}
}

func (a *app) signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "signout",
		Short:   "Revoke the current session; the device id is kept",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.SignOut(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
