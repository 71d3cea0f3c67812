package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/pipeline"
	"github.com/pable/clutchmetrics/internal/preprocess"
	"github.com/pable/clutchmetrics/internal/report"
)

var (
	classifyVisitor    string
	classifyClock      string
	classifyMargin     string
	classifyPeriod     int
	classifyWeek       int
	classifyType       int64
	classifyAction     int64
	classifyPlayers    [3]string
	classifyTeam       int64
	classifyPossession int64
)

var classifyCmd = &cobra.Command{
	Use:   "classify <home-description>",
	Short: "Classify a single play-by-play row and show its weights",
	Long: `Build one play-by-play row from flags, run it through the filter, classifier
and attribution, and print every label with the player it is credited to.

Example:
  clutchmetrics classify "Jones 25' 3PT Jump Shot (3 PTS) (Smith 5 AST)" \
    --type 1 --action 1 --clock 0:08 --margin 2 --player1 Jones --player2 Smith`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyVisitor, "visitor", "", "visitor description")
	f.StringVar(&classifyClock, "clock", "1:00", "PCTIMESTRING (M:SS)")
	f.StringVar(&classifyMargin, "margin", "0", "SCOREMARGIN (integer or TIE)")
	f.IntVar(&classifyPeriod, "period", 4, "period")
	f.IntVar(&classifyWeek, "week", 10, "week of season")
	f.Int64Var(&classifyType, "type", 0, "EVENTMSGTYPE (0 = missing)")
	f.Int64Var(&classifyAction, "action", 0, "EVENTMSGACTIONTYPE (0 = missing)")
	f.StringVar(&classifyPlayers[0], "player1", "", "PLAYER1 name")
	f.StringVar(&classifyPlayers[1], "player2", "", "PLAYER2 name")
	f.StringVar(&classifyPlayers[2], "player3", "", "PLAYER3 name")
	f.Int64Var(&classifyTeam, "team", 1, "PLAYER1 team ID")
	f.Int64Var(&classifyPossession, "possession", 0, "possession team ID (0 = unknown)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	raw := model.RawEvent{
		Period:             classifyPeriod,
		Clock:              classifyClock,
		EventType:          sql.NullInt64{Int64: classifyType, Valid: classifyType != 0},
		ActionType:         sql.NullInt64{Int64: classifyAction, Valid: classifyAction != 0},
		VisitorDescription: classifyVisitor,
		TeamID:             classifyTeam,
		PossessionTeamID:   classifyPossession,
		ScoreMargin:        classifyMargin,
		WeekOfSeason:       classifyWeek,
	}
	if len(args) == 1 {
		raw.HomeDescription = args[0]
	}
	for i, name := range classifyPlayers {
		if name != "" {
			raw.Players[i] = model.Participant{ID: int64(i + 1), Name: name}
		}
	}

	opts := pipeline.OptionsFromConfig(cfg)
	_, reason := pipeline.Prepare(raw, &opts)
	if reason != preprocess.ReasonKept {
		fmt.Fprintf(os.Stdout, "Filtered out (%s): this row would not be scored.\n", reason)
	}

	ev, contribs := pipeline.Explain(raw, opts)
	report.PrintLabels(os.Stdout, ev, opts.Weights)

	var total float64
	for _, c := range contribs {
		total += c.Weight
	}
	fmt.Fprintf(os.Stdout, "\n%d contribution(s), net %+.4f\n", len(contribs), total)
	return nil
}
