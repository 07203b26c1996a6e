package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theladymaker/atelier/internal/session"
)

var (
	publishIndex       int
	publishDescription string
)

var publishCmd = &cobra.Command{
	Use:   "publish <product-url>",
	Short: "Generate captions and export them to Notion as drafts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initPipeline(cfg, "publish")
		if err != nil {
			return err
		}

		s := session.New(deps)
		view, err := s.Generate(cmd.Context(), session.GenerateRequest{
			URL:         args[0],
			Description: publishDescription,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := printView(out, view, false); err != nil {
			return err
		}

		if publishIndex >= 0 {
			outcome, err := s.PublishOne(cmd.Context(), publishIndex)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved: %s\n", outcome.Persona)
			return nil
		}

		res, err := s.PublishAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, o := range res.Outcomes {
			status := "ok"
			if !o.Success {
				status = "failed: " + o.Message
			}
			fmt.Fprintf(out, "%-24s %s\n", o.Persona, status)
		}
		fmt.Fprintf(out, "upload complete: %d of %d assets sent\n", res.Succeeded, res.Attempted)
		return nil
	},
}

func init() {
	publishCmd.Flags().IntVar(&publishIndex, "index", -1, "publish only the caption at this index")
	publishCmd.Flags().StringVar(&publishDescription, "description", "", "description to use when the page has none")
	rootCmd.AddCommand(publishCmd)
}
