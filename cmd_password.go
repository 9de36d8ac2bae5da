package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treefix50/showroom/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for admin.password_hash",
	Long: `Hashes the given password for use as admin.password_hash or
SHOWROOM_ADMIN_PASSWORD_HASH. Without an argument a random password is
generated and printed along with its hash.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			generated, err := auth.GeneratePassword()
			if err != nil {
				return err
			}
			password = generated
			fmt.Fprintf(out, "password: %s\n", password)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "hash: %s\n", hash)
		return nil
	},
}
