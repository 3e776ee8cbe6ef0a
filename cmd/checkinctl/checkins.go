package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	// submit
	var vendor, presence, line, comment, rating, submitter string
	var raffle bool
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a check-in for a vendor",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"vendorId":   vendor,
				"presence":   presence,
				"lineLength": line,
			}
			if comment != "" {
				payload["comment"] = comment
			}
			if rating != "" {
				payload["rating"] = rating
			}
			if submitter != "" {
				payload["submitterId"] = submitter
			}
			if raffle {
				payload["enteredRaffle"] = true
			}
			data, err := doPostJSON("/api/checkins", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	submitCmd.Flags().StringVarP(&vendor, "vendor", "v", "", "Vendor ID (required)")
	submitCmd.Flags().StringVarP(&presence, "presence", "p", "", "present|absent (required)")
	submitCmd.Flags().StringVarP(&line, "line", "l", "", "none|short|medium|long (required)")
	submitCmd.Flags().StringVarP(&comment, "comment", "c", "", "Optional comment")
	submitCmd.Flags().StringVarP(&rating, "rating", "r", "", "Optional rating 1-5")
	submitCmd.Flags().StringVarP(&submitter, "submitter", "s", "", "Submitter ID (anonymous when omitted)")
	submitCmd.Flags().BoolVar(&raffle, "raffle", false, "Enter the raffle")
	_ = submitCmd.MarkFlagRequired("vendor")
	_ = submitCmd.MarkFlagRequired("presence")
	_ = submitCmd.MarkFlagRequired("line")
	rootCmd.AddCommand(submitCmd)

	// recent
	var limit int
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest check-ins across all vendors",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := map[string]string{}
			if limit > 0 {
				query["limit"] = fmt.Sprintf("%d", limit)
			}
			data, err := doGet("/api/checkins/recent", query)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recentCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records to return")
	rootCmd.AddCommand(recentCmd)

	// window
	var minutes int
	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "List raw check-ins in a trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/checkins", map[string]string{"minutes": fmt.Sprintf("%d", minutes)})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	windowCmd.Flags().IntVarP(&minutes, "minutes", "m", 30, "Window size in minutes")
	rootCmd.AddCommand(windowCmd)
}
