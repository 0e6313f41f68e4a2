package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curaious/projectchron/internal/config"
	"github.com/curaious/projectchron/internal/credential"
	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/services/user"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator, or promote an existing user",
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}

		conn := db.NewConn(config.ReadConfig())
		defer conn.Close()

		users := user.NewUserService(conn, credential.NewHasher(credential.DefaultParams))
		u, err := users.EnsureAdmin(context.Background(), &user.RegisterRequest{
			Username: username,
			Password: password,
		})
		if err != nil {
			fmt.Println("Unable to create admin", err)
			os.Exit(1)
		}

		fmt.Printf("Admin %s ready (id %s)\n", u.Username, u.ID)
	},
}

// Register the "create-admin" command
func init() {
	createAdminCmd.Flags().StringP("username", "u", "", "Username of the admin")
	createAdminCmd.Flags().StringP("password", "p", "", "Password of the admin, defaults to $ADMIN_PASSWORD")
	rootCmd.AddCommand(createAdminCmd)
}
