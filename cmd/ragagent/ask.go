package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	srv "github.com/Prasann123/Tradition-RAG/internal/server"
	"github.com/Prasann123/Tradition-RAG/internal/travel"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func askCMD() *cobra.Command {
	var reqCfg core.RequestConfig
	var asJSON bool
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question through the routed agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Orchestrator.Invoke(cmd.Context(), strings.Join(args, " "), reqCfg)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			fmt.Println(res.FinalAnswer)
			if res.AnswerSource != "" {
				fmt.Printf("\n(source: %s)\n", res.AnswerSource)
			}
			for _, s := range res.Sources {
				fmt.Printf("  - %s\n", s.SourceName)
			}
			return nil
		},
	}
	ask.Flags().StringVar(&reqCfg.VectorDB, "vectordb", "", "retrieval backend (milvus, chroma, bleve)")
	ask.Flags().IntVar(&reqCfg.K, "k", 0, "number of chunks to retrieve")
	ask.Flags().StringVar(&reqCfg.CollectionName, "collection", "", "collection name")
	ask.Flags().StringVar(&reqCfg.RetrieverType, "retriever", "", "retriever type")
	ask.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return ask
}

func planTripCMD() *cobra.Command {
	var q travel.Query
	var plan = &cobra.Command{
		Use:   "plan-trip",
		Short: "Plan a trip and print the itinerary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Planner.Plan(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Println(res.FinalAnswer)
			return nil
		},
	}
	plan.Flags().StringVar(&q.Destination, "destination", "", "destination city")
	plan.Flags().StringVar(&q.StartDate, "start", "", "start date (YYYY-MM-DD)")
	plan.Flags().StringVar(&q.ReturnDate, "return", "", "return date (YYYY-MM-DD)")
	plan.Flags().IntVar(&q.Nights, "nights", 0, "number of nights (default 3)")
	plan.Flags().IntVar(&q.Adults, "adults", 0, "number of adults (default 1)")
	plan.Flags().StringVar(&q.Currency, "currency", "", "currency code (default USD)")
	plan.Flags().StringVar(&q.From, "from", "", "origin IATA code")
	plan.Flags().StringVar(&q.To, "to", "", "destination IATA code")
	_ = plan.MarkFlagRequired("destination")
	_ = plan.MarkFlagRequired("start")
	return plan
}
