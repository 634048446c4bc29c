package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"trailblaze-events-scraper/internal/models"
	"trailblaze-events-scraper/internal/services"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	var (
		inputPath      = flag.String("input", "-", "path to the calendar HTML file, or - for stdin")
		source         = flag.String("source", models.SourceAERC, "event source (AERC|SERA|OTHER)")
		dryRun         = flag.Bool("dry-run", false, "run extraction and validation without storing")
		enableAI       = flag.Bool("ai", false, "enable the AI extraction fallback")
		concurrency    = flag.Int("concurrency", 4, "max chunks processed in flight")
		snapshotBucket = flag.String("snapshot-bucket", os.Getenv("SNAPSHOT_BUCKET"), "S3 bucket for run snapshots (empty disables)")
		timeout        = flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	)
	flag.Parse()

	if !models.ValidateSource(*source) {
		log.Fatalf("unknown source %q", *source)
	}

	html, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var store services.EventStore
	var snapshots *services.SnapshotService
	if !*dryRun || *snapshotBucket != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("failed to load AWS config: %v", err)
		}
		if !*dryRun {
			table := os.Getenv("EVENTS_TABLE")
			if table == "" {
				table = "trailblaze-events"
			}
			store = services.NewDynamoDBService(dynamodb.NewFromConfig(cfg), table)
		}
		if *snapshotBucket != "" {
			snapshots = services.NewSnapshotService(s3.NewFromConfig(cfg), *snapshotBucket)
		}
	}

	var aiExtractor *services.AIExtractor
	if *enableAI {
		aiConfig := services.DefaultAIExtractorConfig()
		aiConfig.Source = *source
		aiExtractor = services.NewAIExtractor(aiConfig)
	}

	pipelineConfig := services.DefaultPipelineConfig()
	pipelineConfig.Source = *source
	pipelineConfig.Concurrency = *concurrency
	pipelineConfig.EnableAI = *enableAI

	pipeline := services.NewPipeline(pipelineConfig, aiExtractor, store)

	summary, err := pipeline.Run(ctx, html)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	if snapshots != nil {
		if _, err := snapshots.SaveRawHTML(ctx, summary.RunID, *source, html); err != nil {
			log.Printf("snapshot: %v", err)
		}
		if _, err := snapshots.SaveEvents(ctx, summary.RunID, *source, summary.ValidatedEvents); err != nil {
			log.Printf("snapshot: %v", err)
		}
	}

	output, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal summary: %v", err)
	}
	fmt.Println(string(output))
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
