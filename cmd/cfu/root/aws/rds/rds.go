package rds

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/spf13/cobra"
)

// NewRDSCmd groups the RDS enumeration and acquisition commands.
func NewRDSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rds <command>",
		Short: "Inspect and snapshot RDS databases",
		Example: heredoc.Doc(`
			# List database instances in a region
			$ cfu aws rds instances --region us-east-1

			# Snapshot a database instance
			$ cfu aws rds snapshot --region us-east-1 --db customer-db
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewInstancesCmd())
	cmd.AddCommand(NewSnapshotCmd())

	return cmd
}

func initRDSClient(ctx context.Context, region string) (*rds.Client, error) {
	cfg, err := common.InitAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return rds.NewFromConfig(cfg), nil
}
