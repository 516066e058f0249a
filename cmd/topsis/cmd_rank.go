package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/modelrank/internal/domain/topsis"
	"github.com/okian/modelrank/internal/matrixio"
)

type rankFlags struct {
	input   string
	output  string
	weights string
	impacts string
	sorted  bool
}

func newRankCommand() *cobra.Command {
	var f rankFlags
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the alternatives of a CSV decision matrix",
		Long: `Reads a CSV whose first column labels each alternative and whose other
columns hold numeric criterion values, then writes the same table with
"Topsis Score" and "Rank" columns appended.`,
		Example: "  topsis rank --input data.csv --weights 1,1,1,1 --impacts +,-,-,+ --output result.csv",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRank(cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "Input CSV file, - for stdin")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output CSV file, - for stdout")
	cmd.Flags().StringVarP(&f.weights, "weights", "w", "", "Comma-separated weights, one per criterion")
	cmd.Flags().StringVar(&f.impacts, "impacts", "", "Comma-separated impacts (+ or -), one per criterion")
	cmd.Flags().BoolVar(&f.sorted, "sorted", false, "Write rows best first instead of input order")
	_ = cmd.MarkFlagRequired("weights")
	_ = cmd.MarkFlagRequired("impacts")

	return cmd
}

func runRank(stdin io.Reader, stdout io.Writer, f rankFlags) error {
	weights, err := matrixio.ParseWeights(f.weights)
	if err != nil {
		return err
	}
	impacts, err := matrixio.ParseImpacts(f.impacts)
	if err != nil {
		return err
	}

	in := stdin
	if f.input != "-" {
		file, err := os.Open(f.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close() //nolint:errcheck
		in = file
	}
	table, err := matrixio.Read(in)
	if err != nil {
		return err
	}
	if n := len(table.Criteria()); len(weights) != n || len(impacts) != n {
		return fmt.Errorf("%d criterion columns need %d weights and impacts, got %d and %d",
			n, n, len(weights), len(impacts))
	}

	res, err := topsis.Rank(table.Rows, weights, impacts)
	if err != nil {
		return err
	}

	if f.output == "-" {
		return matrixio.Write(stdout, table, res, f.sorted)
	}
	out, err := os.Create(f.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := matrixio.Write(out, table, res, f.sorted); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
