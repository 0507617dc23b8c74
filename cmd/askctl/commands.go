package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/askhub/askhub-server/internal/auth"
	"github.com/askhub/askhub-server/internal/di/providers"
	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateFlags struct {
	email       string
	username    string
	displayName string
	role        string
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(func(i do.Injector) error {
			users := do.MustInvoke[*service.UserService](i)
			u, err := users.Register(cmd.Context(), service.RegisterInput{
				Email:       userCreateFlags.email,
				Username:    userCreateFlags.username,
				DisplayName: userCreateFlags.displayName,
				Role:        domain.Role(userCreateFlags.role),
			})
			if err != nil {
				return err
			}
			return printJSON(u)
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <userID>",
	Short: "Mint an access token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(i do.Injector) error {
			// Refuse to mint for ids that would fail at the API anyway.
			users := do.MustInvoke[*service.UserService](i)
			if _, err := users.LoadSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			token, exp, err := do.MustInvoke[*auth.TokenService](i).Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
			return nil
		})
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Maintain tag counts",
}

var tagsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Recount every tag from the questions that carry it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(func(i do.Injector) error {
			report, err := do.MustInvoke[*service.TagService](i).Sync(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Print a stored document as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(i do.Injector) error {
			st := do.MustInvoke[*providers.StoreHandle](i)
			doc, err := st.DB().Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"id": doc.ID, "data": doc.Data})
		})
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userCreateFlags.email, "email", "", "Email address")
	f.StringVar(&userCreateFlags.username, "username", "", "Unique username")
	f.StringVar(&userCreateFlags.displayName, "display-name", "", "Display name")
	f.StringVar(&userCreateFlags.role, "role", string(domain.RoleUser), "Role: user, moderator or admin")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd)
	tagsCmd.AddCommand(tagsSyncCmd)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
