package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage SMTP and IMAP passwords in the OS keychain",
	Long:  "Stores passwords under the keychain service \"" + secrets.Service + "\". Reference an entry from the config with keyring_account.",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Store a password read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", args[0])
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		if err := secrets.Set(args[0], strings.TrimRight(line, "\r\n")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "stored")
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove a stored password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "deleted")
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
