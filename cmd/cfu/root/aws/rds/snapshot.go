package rds

import (
	"fmt"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/cloud-forensics-utls/internal/tags"
	"github.com/google/cloud-forensics-utls/internal/telemetry"
	"github.com/google/cloud-forensics-utls/pkg/naming"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

const dbSnapshotWaitTimeout = 50 * time.Minute

// NewSnapshotCmd creates the command that snapshots an RDS database
// instance.
func NewSnapshotCmd() *cobra.Command {
	var region, dbIdentifier, name string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot an RDS database instance",
		Long:  `Create a snapshot of an RDS database instance and wait for it to become available. The database keeps serving traffic while the snapshot is taken.`,
		Example: heredoc.Doc(`
			# Snapshot a database instance
			$ cfu aws rds snapshot --region us-east-1 --db customer-db

			# Snapshot with an explicit snapshot identifier
			$ cfu aws rds snapshot --region us-east-1 --db customer-db --name ir-4211-customer-db
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbIdentifier == "" {
				return fmt.Errorf("--db is required")
			}

			if region == "" {
				region = viper.GetString("region")
			}
			if region == "" {
				return fmt.Errorf("a region is required, pass --region or switch to an engagement context")
			}

			ctx := cmd.Context()

			rdsClient, err := initRDSClient(ctx, region)
			if err != nil {
				return err
			}

			if name == "" {
				generated, err := naming.GenerateSnapshotName(dbIdentifier, time.Now().UTC())
				if err != nil {
					return err
				}
				name = generated
			} else if err := naming.Validate(name); err != nil {
				return err
			}
			// RDS stores snapshot identifiers lowercased.
			name = strings.ToLower(name)

			snapshotTags := []types.Tag{
				{Key: aws.String(tags.Name), Value: aws.String(name)},
			}
			if caseID := viper.GetString("case"); caseID != "" {
				snapshotTags = append(snapshotTags, types.Tag{
					Key:   aws.String(tags.Case),
					Value: aws.String(caseID),
				})
			}

			ctx, span := telemetry.StartAPISpan(ctx, "rds", "create_db_snapshot",
				attribute.String("aws.region", region),
				attribute.String("aws.db_instance", dbIdentifier),
			)
			defer span.End()

			output, err := rdsClient.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
				DBInstanceIdentifier: aws.String(dbIdentifier),
				DBSnapshotIdentifier: aws.String(name),
				Tags:                 snapshotTags,
			})
			if err != nil {
				err = fmt.Errorf("failed to snapshot database %s: %w", dbIdentifier, err)
				telemetry.SetSpanError(span, err)
				return err
			}

			snapshotID := aws.ToString(output.DBSnapshot.DBSnapshotIdentifier)
			log.Info("Waiting for database snapshot to become available", "snapshot_id", snapshotID)

			waiter := rds.NewDBSnapshotAvailableWaiter(rdsClient)
			err = waiter.Wait(ctx, &rds.DescribeDBSnapshotsInput{
				DBSnapshotIdentifier: aws.String(snapshotID),
			}, dbSnapshotWaitTimeout, func(o *rds.DBSnapshotAvailableWaiterOptions) {
				o.MinDelay = 30 * time.Second
			})
			if err != nil {
				err = fmt.Errorf("database snapshot %s did not become available: %w", snapshotID, err)
				telemetry.SetSpanError(span, err)
				return err
			}

			telemetry.AddSpanAttribute(span, "aws.snapshot_id", snapshotID)
			telemetry.SetSpanSuccess(span)

			green := color.New(color.FgGreen, color.Bold)
			cyan := color.New(color.FgCyan)
			dim := color.New(color.Faint)

			fmt.Println()
			green.Print("✓ ")
			fmt.Print("database snapshot ")
			cyan.Printf("%s ", snapshotID)
			dim.Printf("(database: %s, engine: %s)\n", dbIdentifier, aws.ToString(output.DBSnapshot.Engine))

			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS Region of the database")
	cmd.Flags().StringVar(&dbIdentifier, "db", "", "Identifier of the database instance to snapshot")
	cmd.Flags().StringVar(&name, "name", "", "Identifier for the snapshot (generated when empty)")

	return cmd
}
