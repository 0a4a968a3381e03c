package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewLeadCmd создаёт группу команд для управления лидами.
func NewLeadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Manage leads",
	}

	cmd.AddCommand(
		newLeadListCmd(clientFn, outputFn),
		newLeadCreateCmd(clientFn, outputFn),
		newLeadShowCmd(clientFn, outputFn),
		newLeadStatusCmd(clientFn, outputFn),
		newLeadEventsCmd(clientFn, outputFn),
	)

	return cmd
}

func newLeadListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := clientFn().ListLeads(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "PHONE", "STATUS", "UPDATED", "STALLED"}
			rows := make([][]string, len(leads))
			for i, l := range leads {
				rows[i] = []string{
					l.ID,
					l.Phone,
					l.Status,
					l.UpdatedAt,
					formatStalled(l.StalledSec),
				}
			}

			outputFn().Print(headers, rows, leads)
			return nil
		},
	}

	addListFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.OrderDir, "order", "", "Sort by updated_at: asc or desc")
	return cmd
}

func newLeadCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateLeadRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			lead, err := clientFn().CreateLead(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Lead %s created", lead.ID))
			out.Print(
				[]string{"ID", "PHONE", "STATUS"},
				[][]string{{lead.ID, lead.Phone, lead.Status}},
				lead,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number (required)")
	cmd.Flags().StringVar(&req.Status, "status", "", "Initial status (default: new)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newLeadShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lead, err := clientFn().GetLead(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"ID", "PHONE", "STATUS", "UPDATED", "STALLED"},
				[][]string{{lead.ID, lead.Phone, lead.Status, lead.UpdatedAt, formatStalled(lead.StalledSec)}},
				lead,
			)
			return nil
		},
	}
}

func newLeadStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change lead status",
		Long:  "Change lead status. Every call is recorded in lead events, even when the status is the same.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := clientFn().SetLeadStatus(args[0], args[1])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Lead %s is now %s", event.LeadID, event.Status))
			if out.jsonMode {
				out.JSON(event)
			}
			return nil
		},
	}
}

func newLeadEventsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListOpts

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List lead status events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := clientFn().ListLeadEvents(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "LEAD", "STATUS", "CREATED"}
			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = []string{e.ID, e.LeadID, e.Status, e.CreatedAt}
			}

			outputFn().Print(headers, rows, events)
			return nil
		},
	}

	addListFlags(cmd, &opts)
	return cmd
}

// addListFlags добавляет флаги пагинации.
func addListFlags(cmd *cobra.Command, opts *ListOpts) {
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max items to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Items to skip")
}

func formatStalled(sec int64) string {
	if sec <= 0 {
		return "-"
	}
	return (time.Duration(sec) * time.Second).String()
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}
