package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRuleCmd создаёт группу команд для управления правилами follow-up.
func NewRuleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage follow-up rules",
	}

	cmd.AddCommand(
		newRuleListCmd(clientFn, outputFn),
		newRuleCreateCmd(clientFn, outputFn),
		newRuleToggleCmd(clientFn, outputFn, true),
		newRuleToggleCmd(clientFn, outputFn, false),
	)

	return cmd
}

func newRuleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List follow-up rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := clientFn().ListRules(opts)
			if err != nil {
				return err
			}

			outputFn().Print(ruleHeaders(), ruleRows(rules...), rules)
			return nil
		},
	}

	addListFlags(cmd, &opts)
	return cmd
}

func newRuleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateRuleRequest
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a follow-up rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if disabled {
				enabled := false
				req.IsEnabled = &enabled
			}

			rule, err := clientFn().CreateRule(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Rule %s created", rule.ID))
			out.Print(ruleHeaders(), ruleRows(*rule), rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Status, "status", "", "Lead status the rule applies to (required)")
	cmd.Flags().IntVar(&req.Delay, "delay", 0, "Minutes in status before follow-up (required)")
	cmd.Flags().StringVar(&req.Text, "text", "", "SMS text (required)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("status")
	_ = cmd.MarkFlagRequired("delay")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newRuleToggleCmd(clientFn func() *Client, outputFn func() *Output, enabled bool) *cobra.Command {
	use, short, verb := "disable <id>", "Disable a follow-up rule", "disabled"
	if enabled {
		use, short, verb = "enable <id>", "Enable a follow-up rule", "enabled"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := clientFn().SetRuleEnabled(args[0], enabled)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Rule %s %s", rule.ID, verb))
			if out.jsonMode {
				out.JSON(rule)
			}
			return nil
		},
	}
}

func ruleHeaders() []string {
	return []string{"ID", "STATUS", "DELAY", "ENABLED", "TEXT"}
}

func ruleRows(rules ...RuleResponse) [][]string {
	rows := make([][]string, len(rules))
	for i, r := range rules {
		rows[i] = []string{
			r.ID,
			r.Status,
			strconv.Itoa(r.Delay) + "m",
			formatBool(r.IsEnabled),
			truncate(r.Text, 40),
		}
	}
	return rows
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
