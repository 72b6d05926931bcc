package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/edutok-api/internal/domain"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStore archives cleanup stats as JSON objects, one per pass.
type ReportStore struct {
	client putter
	bucket string
}

func NewReportStore(client putter, bucket string) *ReportStore {
	return &ReportStore{client: client, bucket: bucket}
}

// ReportKey is cleanup-reports/YYYY/MM/DD/<runId>.json, dated by the pass
// timestamp in UTC.
func ReportKey(stats domain.CleanupStats) string {
	day := time.UnixMilli(stats.Timestamp).UTC().Format("2006/01/02")
	run := stats.RunID
	if run == "" {
		run = fmt.Sprintf("%d", stats.Timestamp)
	}
	return fmt.Sprintf("cleanup-reports/%s/%s.json", day, run)
}

func (r *ReportStore) Save(ctx context.Context, stats domain.CleanupStats) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal cleanup stats: %w", err)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(ReportKey(stats)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
