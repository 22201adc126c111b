package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
)

var (
	askQuestion string
	askDocs     []string
	askTopK     int
	askLogic    bool
	askPlain    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question against the indexed documents",
	Long: `Retrieve supporting clauses and generate a cited answer. The response is
printed as indented JSON unless --plain is given.

Examples:
  bajaj-cloud ask "What is the waiting period for cataract surgery?"
  bajaj-cloud ask -q "Is maternity covered?" --doc 7c1e...pdf --logic`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer")
	askCmd.Flags().StringSliceVar(&askDocs, "doc", nil, "restrict retrieval to these document ids")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "clauses to retrieve (default TOP_K_RESULTS)")
	askCmd.Flags().BoolVar(&askLogic, "logic", false, "include the decision logic tree")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print the answer and sources as text")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := askQuestion
	if len(args) == 1 {
		question = args[0]
	}
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Services.Answerer.Answer(ctx, domain.QueryRequest{
		Question:     question,
		DocumentIDs:  askDocs,
		MaxResults:   askTopK,
		IncludeLogic: askLogic,
	})
	if err != nil {
		return err
	}
	if askPlain {
		printAnswer(cmd.OutOrStdout(), resp)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func printAnswer(w io.Writer, resp *domain.QueryResponse) {
	fmt.Fprintf(w, "%s\n\nConfidence: %.2f\n", resp.Answer, resp.Confidence)
	if len(resp.ClausesUsed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, c := range resp.ClausesUsed {
		page := ""
		if c.Page != nil {
			page = fmt.Sprintf(" p.%d", *c.Page)
		}
		fmt.Fprintf(w, "  [%d] %s (%s%s) score=%.3f\n", i+1, c.ClauseID, c.DocumentID, page, c.RelevanceScore)
	}
}
