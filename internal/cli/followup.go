package cli

import (
	"github.com/spf13/cobra"
)

// NewFollowupCmd создаёт группу команд для просмотра отправленных follow-up.
func NewFollowupCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followup",
		Short: "Inspect sent follow-ups",
	}

	var opts ListOpts
	list := &cobra.Command{
		Use:   "list",
		Short: "List sent follow-ups",
		RunE: func(cmd *cobra.Command, args []string) error {
			followups, err := clientFn().ListFollowups(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "LEAD", "RULE", "CREATED"}
			rows := make([][]string, len(followups))
			for i, f := range followups {
				rows[i] = []string{f.ID, f.LeadID, f.RuleID, f.CreatedAt}
			}

			outputFn().Print(headers, rows, followups)
			return nil
		},
	}
	addListFlags(list, &opts)

	cmd.AddCommand(list)
	return cmd
}

// NewLockCmd создаёт группу команд для просмотра execution locks.
func NewLockCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect execution locks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List execution locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			locks, err := clientFn().ListLocks()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "LOCKED AT", "HELD"}
			rows := make([][]string, len(locks))
			for i, l := range locks {
				lockedAt := "-"
				if l.LockedAt != nil {
					lockedAt = *l.LockedAt
				}
				rows[i] = []string{l.Name, lockedAt, formatBool(l.Held)}
			}

			outputFn().Print(headers, rows, locks)
			return nil
		},
	})

	return cmd
}
