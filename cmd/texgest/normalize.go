package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	normalizeStage string
	listStages     bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [FILE]",
	Short: "Rewrite LaTeX markup into plain text",
	Long:  `Normalize reads FILE, or stdin when FILE is omitted or "-", and prints the plain-text rewrite.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, err := newProcessor()
		if err != nil {
			return err
		}
		norm := proc.Normalizer()
		if listStages {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(norm.Stages(), "\n"))
			return nil
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		var out string
		if normalizeStage != "" {
			out, err = norm.Apply(normalizeStage, string(data))
		} else {
			out, err = norm.Normalize(string(data))
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeStage, "stage", "", "Apply a single named stage")
	normalizeCmd.Flags().BoolVar(&listStages, "list-stages", false, "Print the stage names in order and exit")
	rootCmd.AddCommand(normalizeCmd)
}
