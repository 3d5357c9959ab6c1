package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NewS3Cmd groups the evidence bucket commands.
func NewS3Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3 <command>",
		Short: "Move evidence in and out of S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewUploadCmd())

	return cmd
}

// NewUploadCmd creates the command that uploads local evidence files
// to an S3 bucket.
func NewUploadCmd() *cobra.Command {
	var region, bucket string
	var createBucket bool

	cmd := &cobra.Command{
		Use:   "upload [patterns...]",
		Short: "Upload evidence files to an S3 bucket",
		Long: heredoc.Doc(`
			Upload local files to an evidence bucket. Patterns support ** for
			recursive matching and a ! prefix for exclusions. Objects are keyed by
			file basename under the bucket path.
		`),
		Example: heredoc.Doc(`
			# Upload memory and disk captures to the engagement's evidence bucket
			$ cfu aws s3 upload captures/*.lime captures/*.dd

			# Upload a capture tree, skipping scratch files
			$ cfu aws s3 upload 'captures/**' '!captures/**/*.tmp' --bucket s3://ir-4211-evidence/webserver

			# Create the bucket first
			$ cfu aws s3 upload capture.dd --bucket ir-4211-evidence --create-bucket
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = viper.GetString("evidence-bucket")
			}
			if bucket == "" {
				return fmt.Errorf("an evidence bucket is required, pass --bucket or switch to an engagement context")
			}

			if region == "" {
				region = viper.GetString("region")
			}
			if region == "" {
				return fmt.Errorf("a region is required, pass --region or switch to an engagement context")
			}

			bucketName, keyPrefix := parseBucketPath(bucket)

			files, err := expandGlob(args)
			if err != nil {
				return err
			}

			ctx, span := telemetry.StartSpan(cmd.Context(), "aws.s3_upload",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("aws.region", region),
					attribute.String("aws.bucket", bucketName),
					attribute.Int("upload.files", len(files)),
				),
			)
			defer span.End()

			err = runUpload(ctx, region, bucketName, keyPrefix, files, createBucket)
			if err != nil {
				telemetry.SetSpanError(span, err)
				return err
			}

			telemetry.SetSpanSuccess(span)
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS Region of the bucket")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket to upload into, s3://name/prefix or plain name")
	cmd.Flags().BoolVar(&createBucket, "create-bucket", false, "Create the bucket before uploading")

	return cmd
}

func runUpload(ctx context.Context, region, bucketName, keyPrefix string, files []string, createBucket bool) error {
	cfg, err := common.InitAWSConfig(ctx, region)
	if err != nil {
		return err
	}

	s3Client := awss3.NewFromConfig(cfg)

	if createBucket {
		if err := ensureBucket(ctx, s3Client, bucketName, region); err != nil {
			return err
		}
	}

	uploader := manager.NewUploader(s3Client)
	caseID := viper.GetString("case")

	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)

	fmt.Println()

	var failed int
	for _, file := range files {
		location, err := uploadFile(ctx, uploader, bucketName, keyPrefix, file, caseID)
		if err != nil {
			failed++
			red.Print("✗ ")
			fmt.Printf("%s: ", file)
			red.Printf("%v\n", err)
			continue
		}

		green.Print("✓ ")
		cyan.Printf("%s ", file)
		dim.Printf("(%s)\n", location)
	}

	fmt.Println()
	fmt.Printf("Uploaded %d of %d files to ", len(files)-failed, len(files))
	cyan.Printf("s3://%s\n", path.Join(bucketName, keyPrefix))

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}

func uploadFile(ctx context.Context, uploader *manager.Uploader, bucketName, keyPrefix, file, caseID string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	key := path.Join(keyPrefix, filepath.Base(file))

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
		Body:   f,
	}
	if caseID != "" {
		input.Metadata = map[string]string{"cfu-case": caseID}
	}

	output, err := uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file, err)
	}

	log.Debug("Uploaded evidence file", "file", file, "key", key)
	return output.Location, nil
}

// ensureBucket creates the evidence bucket. A bucket the caller already
// owns is fine, anything else is an error.
func ensureBucket(ctx context.Context, s3Client *awss3.Client, bucketName, region string) error {
	input := &awss3.CreateBucketInput{
		Bucket: aws.String(bucketName),
		ACL:    types.BucketCannedACLPrivate,
	}
	// us-east-1 is the default location and rejects an explicit constraint.
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	_, err := s3Client.CreateBucket(ctx, input)
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			log.Warn("Evidence bucket already exists and is owned by this account", "bucket", bucketName)
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	log.Info("Created evidence bucket", "bucket", bucketName, "region", region)
	return nil
}

// parseBucketPath splits "s3://bucket/some/prefix" into the bucket name
// and key prefix. The scheme and a bare bucket name are both accepted.
func parseBucketPath(bucket string) (string, string) {
	trimmed := strings.TrimPrefix(bucket, "s3://")
	trimmed = strings.Trim(trimmed, "/")

	name, prefix, found := strings.Cut(trimmed, "/")
	if !found {
		return trimmed, ""
	}
	return name, prefix
}
