package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewledger/crewledger/modules/identity/scoring"
	"github.com/crewledger/crewledger/pkg/configuration"
)

// scoreCommand inspects the extraction-quality signals for one observation,
// the same math the report pipeline runs before deciding on review.
func scoreCommand() *cobra.Command {
	var (
		position   string
		sourceText string
		hours      float64
		overtime   float64
		mentions   int
		isNew      bool
		matchConf  float64
		histConf   float64
		anomaly    float64
	)

	cmd := &cobra.Command{
		Use:   "score <raw name>",
		Short: "Score an extracted personnel observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			scorer := scoring.NewScorerWithFloors(
				conf.Matching.ReviewFloor,
				conf.Matching.NewEntityReviewFloor,
			)

			nameScore := scorer.ScoreName(args[0], mentions)
			positionScore := scorer.ScorePosition(position, sourceText)
			hoursScore := scorer.ScoreHours(hours, overtime, sourceText)
			extraction := (nameScore + positionScore + hoursScore) / 3
			overall := scorer.Overall(extraction, matchConf, histConf, anomaly)

			fmt.Printf("name:       %.0f\n", nameScore)
			fmt.Printf("position:   %.0f\n", positionScore)
			fmt.Printf("hours:      %.0f\n", hoursScore)
			fmt.Printf("extraction: %.1f\n", extraction)
			fmt.Printf("overall:    %.1f\n", overall)
			if scorer.NeedsReview(overall, isNew, false) {
				fmt.Println("needs review")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&position, "position", "", "extracted position or role")
	cmd.Flags().StringVar(&sourceText, "text", "", "source transcript text")
	cmd.Flags().Float64Var(&hours, "hours", 0, "hours worked")
	cmd.Flags().Float64Var(&overtime, "overtime", 0, "overtime hours")
	cmd.Flags().IntVar(&mentions, "mentions", 1, "times the name recurs in the source text")
	cmd.Flags().BoolVar(&isNew, "new", false, "observation created a new employee record")
	cmd.Flags().Float64Var(&matchConf, "match-confidence", 50, "identity match confidence, 0-100")
	cmd.Flags().Float64Var(&histConf, "history-confidence", 50, "historical consistency confidence, 0-100")
	cmd.Flags().Float64Var(&anomaly, "anomaly", 0, "anomaly score, 0-100")
	return cmd
}
