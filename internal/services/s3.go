package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"trailblaze-events-scraper/internal/models"
)

// SnapshotService archives the inputs and outputs of each scraping run
// to S3: the raw calendar HTML as fetched, and the validated events the
// run produced. Snapshots make extraction regressions reproducible
// without re-fetching the source.
type SnapshotService struct {
	client     *s3.Client
	bucketName string
}

// NewSnapshotService creates a snapshot service for the given bucket
func NewSnapshotService(client *s3.Client, bucketName string) *SnapshotService {
	return &SnapshotService{
		client:     client,
		bucketName: bucketName,
	}
}

// SaveRawHTML archives the raw calendar document for a run
func (s *SnapshotService) SaveRawHTML(ctx context.Context, runID, source, html string) (string, error) {
	key := snapshotKey(runID, source, "calendar.html")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(html)),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save raw HTML snapshot: %w", err)
	}
	return key, nil
}

// SaveEvents archives the validated events a run produced
func (s *SnapshotService) SaveEvents(ctx context.Context, runID, source string, events []*models.Event) (string, error) {
	key := snapshotKey(runID, source, "events.json")

	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal events snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save events snapshot: %w", err)
	}
	return key, nil
}

// LoadHTML fetches an archived (or externally staged) calendar document
func (s *SnapshotService) LoadHTML(ctx context.Context, key string) (string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to load HTML from s3://%s/%s: %w", s.bucketName, key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read HTML body: %w", err)
	}
	return string(body), nil
}

// snapshotKey lays snapshots out by date, source, and run id so runs
// stay browsable in the console.
func snapshotKey(runID, source, filename string) string {
	return fmt.Sprintf("snapshots/%s/%s/%s/%s", time.Now().Format("2006-01-02"), source, runID, filename)
}
