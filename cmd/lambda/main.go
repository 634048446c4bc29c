package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"trailblaze-events-scraper/internal/models"
	"trailblaze-events-scraper/internal/services"
)

// ScrapeRequest is the Lambda invocation payload. The calendar HTML is
// staged in S3 by the fetch side; this function only runs extraction.
type ScrapeRequest struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Source   string `json:"source"`
	EnableAI bool   `json:"enable_ai"`
}

// HandleScrape runs the extraction pipeline for one staged calendar
// document and returns the run summary.
func HandleScrape(ctx context.Context, request ScrapeRequest) (*services.ScrapeSummary, error) {
	if request.Bucket == "" || request.Key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}
	source := request.Source
	if source == "" {
		source = models.SourceAERC
	}
	if !models.ValidateSource(source) {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	snapshots := services.NewSnapshotService(s3.NewFromConfig(cfg), request.Bucket)
	html, err := snapshots.LoadHTML(ctx, request.Key)
	if err != nil {
		return nil, err
	}

	table := os.Getenv("EVENTS_TABLE")
	if table == "" {
		table = "trailblaze-events"
	}
	store := services.NewDynamoDBService(dynamodb.NewFromConfig(cfg), table)

	var aiExtractor *services.AIExtractor
	if request.EnableAI {
		aiConfig := services.DefaultAIExtractorConfig()
		aiConfig.Source = source
		aiExtractor = services.NewAIExtractor(aiConfig)
	}

	pipelineConfig := services.DefaultPipelineConfig()
	pipelineConfig.Source = source
	pipelineConfig.EnableAI = request.EnableAI

	pipeline := services.NewPipeline(pipelineConfig, aiExtractor, store)

	summary, err := pipeline.Run(ctx, html)
	if err != nil {
		return nil, err
	}

	if _, err := snapshots.SaveEvents(ctx, summary.RunID, source, summary.ValidatedEvents); err != nil {
		log.Printf("snapshot: %v", err)
	}

	log.Printf("scrape %s: %d validated, %d added, %d updated, %d skipped",
		summary.RunID, summary.EventsValidated,
		summary.Upserts.Added, summary.Upserts.Updated, summary.Upserts.Skipped)
	return summary, nil
}

func main() {
	lambda.Start(HandleScrape)
}
