package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theladymaker/atelier/internal/session"
)

var (
	generateDescription string
	generateJSON        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <product-url>",
	Short: "Generate persona captions for a product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initPipeline(cfg, "generate")
		if err != nil {
			return err
		}

		s := session.New(deps)
		view, err := s.Generate(cmd.Context(), session.GenerateRequest{
			URL:         args[0],
			Description: generateDescription,
		})
		if err != nil {
			return err
		}

		return printView(cmd.OutOrStdout(), view, generateJSON)
	},
}

func printView(w io.Writer, v *session.View, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if v.Product != nil {
		fmt.Fprintln(w, strings.ToUpper(v.Product.Title))
		if v.NeedsInput {
			fmt.Fprintln(w, "  description not found on the page; pass --description")
		}
		fmt.Fprintf(w, "  %d image(s)\n\n", len(v.ImageURLs))
	}
	for _, c := range v.Captions {
		fmt.Fprintf(w, "[%d] %s\n%s\n\n", c.Index, c.Persona, c.Post)
	}
	return nil
}

func init() {
	generateCmd.Flags().StringVar(&generateDescription, "description", "", "description to use when the page has none")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the session as JSON")
	rootCmd.AddCommand(generateCmd)
}
