package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/catalog"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/clock"
	memtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/triprepo"
	memvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
)

const dateLayout = "2006-01-02"

type generateFlags struct {
	catalogPath string
	title       string
	origin      string
	province    string
	city        string
	interests   []string
	budget      string
	style       string
	start       string
	end         string
	asJSON      bool
	logLevel    string
}

func newGenerateCmd(_ *rootFlags) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Plan a trip from a catalog file and print it",
		Long: `generate builds an itinerary against an in-memory store and prints it.
Nothing is persisted.`,
		Example: `  planner generate --catalog places.yaml --province Fars --city Shiraz \
    --interests history,nature --budget MODERATE --start 2026-05-01 --end 2026-05-03`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.catalogPath, "catalog", "", "YAML place catalog (required)")
	fl.StringVar(&f.title, "title", "", "trip title (default \"Trip to <destination>\")")
	fl.StringVar(&f.origin, "origin", "", "where the traveller starts from")
	fl.StringVar(&f.province, "province", "", "destination province (required)")
	fl.StringVar(&f.city, "city", "", "destination city")
	fl.StringSliceVar(&f.interests, "interests", nil, "comma-separated interests (history, nature, ...)")
	fl.StringVar(&f.budget, "budget", "", "ECONOMY, MODERATE or LUXURY (default MODERATE)")
	fl.StringVar(&f.style, "style", "", "SOLO, COUPLE, FAMILY, FRIENDS or BUSINESS (default SOLO)")
	fl.StringVar(&f.start, "start", "", "first day, YYYY-MM-DD (required)")
	fl.StringVar(&f.end, "end", "", "last day, YYYY-MM-DD (default start + 2 days)")
	fl.BoolVar(&f.asJSON, "json", false, "print the itinerary as JSON")
	fl.StringVar(&f.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("province")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runGenerate(cmd *cobra.Command, f *generateFlags) error {
	ctx := cmd.Context()
	log, err := logging.New(cmd.ErrOrStderr(), f.logLevel, "text")
	if err != nil {
		return err
	}

	start, err := time.Parse(dateLayout, f.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	in := trips.GenerateInput{
		Title:       f.title,
		Origin:      f.origin,
		Province:    f.province,
		City:        f.city,
		Interests:   f.interests,
		Budget:      f.budget,
		TravelStyle: f.style,
		StartDate:   start,
	}
	if f.end != "" {
		end, err := time.Parse(dateLayout, f.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		in.EndDate = &end
	}

	supply, err := catalog.Load(f.catalogPath)
	if err != nil {
		return err
	}
	svc := trips.NewService(memtriprepo.NewRepo(), memvoterepo.NewRepo(), supply,
		memclock.NewManualClock(time.Now().UTC()), trips.WithLogger(log))

	it, err := svc.Generate(ctx, "", in)
	if err != nil {
		return err
	}
	if f.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.ItineraryResponse{Itinerary: httpapi.ItineraryFromDomain(it)})
	}
	return printItinerary(cmd.OutOrStdout(), it)
}

func printItinerary(w io.Writer, it trips.Itinerary) error {
	t := it.Trip
	fmt.Fprintf(w, "%s (%s .. %s, %s, %s)\n", t.Title,
		t.StartDate.Format(dateLayout), t.EndDate().Format(dateLayout), t.Budget, t.TravelStyle)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range it.Days {
		fmt.Fprintf(tw, "Day %d\t%s\t\t\t\n", d.Day.Index, d.Day.Date.Format(dateLayout))
		if len(d.Items) == 0 {
			fmt.Fprintln(tw, "  (nothing scheduled)\t\t\t\t")
		}
		for _, item := range d.Items {
			fmt.Fprintf(tw, "  %s-%s\t%s\t%s\t%s\t%d\n",
				item.StartAt.Format("15:04"), item.EndAt.Format("15:04"),
				item.Kind, item.Title, item.Category, item.EstimatedCost)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t.TotalEstimatedCost != nil {
		fmt.Fprintf(w, "Total estimated cost: %d\n", *t.TotalEstimatedCost)
	}
	return nil
}

