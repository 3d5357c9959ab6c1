package snapshot

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/fatih/color"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/telemetry"
	"github.com/google/cloud-forensics-utls/pkg/ebs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// NewSnapshotCmd creates the command that snapshots an EBS volume
// without materializing a copy.
func NewSnapshotCmd() *cobra.Command {
	var region, volumeID, name string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot an EBS volume",
		Long:  `Create a point-in-time snapshot of an EBS volume and wait for it to complete. The volume itself is left untouched.`,
		Example: heredoc.Doc(`
			# Snapshot a volume by ID
			$ cfu aws snapshot --region us-east-1 --volume vol-0123456789abcdef0

			# Snapshot a volume by Name tag with an explicit snapshot name
			$ cfu aws snapshot --region us-east-1 --volume webserver-root --name ir-4211-webserver-root
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if volumeID == "" {
				return fmt.Errorf("--volume is required")
			}

			if region == "" {
				region = viper.GetString("region")
			}
			if region == "" {
				return fmt.Errorf("a region is required, pass --region or switch to an engagement context")
			}

			ctx := cmd.Context()

			cfg, err := common.InitAWSConfig(ctx, region)
			if err != nil {
				return err
			}

			ec2Client := ec2.NewFromConfig(cfg, func(o *ec2.Options) {
				o.RetryMaxAttempts = 3
				o.RetryMode = aws.RetryModeStandard
			})
			svc := ebs.NewService(ec2Client, region)

			volume, err := svc.FindVolume(ctx, volumeID)
			if err != nil {
				return err
			}

			snap, err := telemetry.WithTelemetry(ctx, "aws.snapshot_volume",
				func(ctx context.Context) (ebs.Snapshot, error) {
					return svc.SnapshotVolume(ctx, volume, name)
				},
				attribute.String("aws.region", region),
				attribute.String("aws.volume_id", volume.VolumeID),
			)
			if err != nil {
				return fmt.Errorf("failed to snapshot volume %s: %w", volume.VolumeID, err)
			}

			green := color.New(color.FgGreen, color.Bold)
			cyan := color.New(color.FgCyan)
			dim := color.New(color.Faint)

			fmt.Println()
			green.Print("✓ ")
			fmt.Print("snapshot ")
			cyan.Printf("%s ", snap.Name)
			dim.Printf("(id: %s, volume: %s)\n", snap.SnapshotID, snap.VolumeID)

			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS Region of the volume")
	cmd.Flags().StringVar(&volumeID, "volume", "", "ID or Name tag of the volume to snapshot")
	cmd.Flags().StringVar(&name, "name", "", "Name tag for the snapshot (generated when empty)")

	return cmd
}
