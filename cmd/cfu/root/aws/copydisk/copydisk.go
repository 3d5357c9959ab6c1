package copydisk

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/tags"
	"github.com/google/cloud-forensics-utls/internal/telemetry"
	"github.com/google/cloud-forensics-utls/pkg/ebs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type copyDiskOptions struct {
	region       string
	volumeID     string
	instanceID   string
	zone         string
	volumeName   string
	namePrefix   string
	volumeType   string
	keepSnapshot bool
}

// NewCopyDiskCmd creates the command that copies an EBS volume into a
// fresh evidence volume via an intermediate snapshot.
func NewCopyDiskCmd() *cobra.Command {
	var opts copyDiskOptions

	cmd := &cobra.Command{
		Use:   "copy-disk",
		Short: "Copy an EBS volume for offline analysis",
		Long: heredoc.Doc(`
			Copy an EBS volume without touching the original. The source volume is
			snapshotted, the snapshot is materialized as a new tagged volume, and
			the working snapshot is deleted. The source volume is never modified,
			detached, or attached.
		`),
		Example: heredoc.Doc(`
			# Copy a volume in place
			$ cfu aws copy-disk --region us-east-1 --volume vol-0123456789abcdef0

			# Copy the boot volume of a compromised instance into another zone
			$ cfu aws copy-disk --region us-east-1 --instance i-0123456789abcdef0 --zone us-east-1d

			# Keep the intermediate snapshot and label the copy
			$ cfu aws copy-disk --region us-east-1 --volume vol-0123456789abcdef0 \
			    --keep-snapshot --name ir-4211-webserver-root
		`),
		RunE: runCopyDisk(&opts),
	}

	cmd.Flags().StringVarP(&opts.region, "region", "r", "", "AWS Region of the source volume")
	cmd.Flags().StringVar(&opts.volumeID, "volume", "", "ID or Name tag of the volume to copy")
	cmd.Flags().StringVar(&opts.instanceID, "instance", "", "ID or Name tag of the instance whose boot volume to copy")
	cmd.Flags().StringVar(&opts.zone, "zone", "", "Availability zone for the copy (defaults to the source volume's zone)")
	cmd.Flags().StringVar(&opts.volumeName, "name", "", "Name tag for the copy (generated when empty)")
	cmd.Flags().StringVar(&opts.namePrefix, "name-prefix", "evidence", "Prefix for the generated copy name")
	cmd.Flags().StringVar(&opts.volumeType, "volume-type", "", "Volume type for the copy (defaults to the source volume's type)")
	cmd.Flags().BoolVar(&opts.keepSnapshot, "keep-snapshot", false, "Keep the intermediate snapshot instead of deleting it")

	return cmd
}

func runCopyDisk(opts *copyDiskOptions) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if (opts.volumeID == "") == (opts.instanceID == "") {
			return fmt.Errorf("exactly one of --volume or --instance is required")
		}

		region := opts.region
		if region == "" {
			region = viper.GetString("region")
		}
		if region == "" {
			return fmt.Errorf("a region is required, pass --region or switch to an engagement context")
		}

		ctx, span := telemetry.StartSpan(cmd.Context(), "aws.copy_disk",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("aws.region", region)),
		)
		defer span.End()

		evidence, snapshot, err := acquireVolumeCopy(ctx, region, opts)
		if err != nil {
			telemetry.SetSpanError(span, err)
			return err
		}

		telemetry.AddSpanAttribute(span, "aws.snapshot_id", snapshot.SnapshotID)
		telemetry.AddSpanAttribute(span, "aws.volume_copy_id", evidence.VolumeID)
		telemetry.SetSpanSuccess(span)

		printAcquisition(evidence, snapshot, opts.keepSnapshot)
		return nil
	}
}

// acquireVolumeCopy runs the snapshot, copy, and cleanup sequence and
// returns the evidence volume along with the intermediate snapshot.
func acquireVolumeCopy(ctx context.Context, region string, opts *copyDiskOptions) (ebs.Volume, ebs.Snapshot, error) {
	cfg, err := common.InitAWSConfig(ctx, region)
	if err != nil {
		return ebs.Volume{}, ebs.Snapshot{}, err
	}

	ec2Client := ec2.NewFromConfig(cfg, func(o *ec2.Options) {
		o.RetryMaxAttempts = 3
		o.RetryMode = aws.RetryModeStandard
	})
	svc := ebs.NewService(ec2Client, region)

	identity, err := common.GetCallerIdentity(ctx, cfg)
	if err != nil {
		return ebs.Volume{}, ebs.Snapshot{}, err
	}

	volume, err := resolveSourceVolume(ctx, svc, opts)
	if err != nil {
		return ebs.Volume{}, ebs.Snapshot{}, err
	}

	acquisitionID := uuid.New().String()
	caseID := viper.GetString("case")

	log.Info("Starting volume acquisition",
		"volume_id", volume.VolumeID,
		"zone", volume.AvailabilityZone,
		"account", aws.ToString(identity.Account),
		"acquisition_id", acquisitionID,
	)

	snapshot, err := svc.SnapshotVolume(ctx, volume, "")
	if err != nil {
		return ebs.Volume{}, ebs.Snapshot{}, fmt.Errorf("failed to snapshot volume %s: %w", volume.VolumeID, err)
	}

	evidence, err := svc.CreateVolumeFromSnapshot(ctx, snapshot, ebs.CopyOptions{
		VolumeName:     opts.volumeName,
		NamePrefix:     opts.namePrefix,
		CallerIdentity: aws.ToString(identity.UserId),
		Zone:           opts.zone,
		VolumeType:     opts.volumeType,
		AcquisitionID:  acquisitionID,
		CaseID:         caseID,
	})
	if err != nil {
		return ebs.Volume{}, ebs.Snapshot{}, fmt.Errorf("failed to create volume copy from snapshot %s: %w", snapshot.SnapshotID, err)
	}

	if !opts.keepSnapshot {
		// The snapshot already served its purpose. A failed delete is
		// not worth failing the acquisition over, the copy exists.
		if err := svc.DeleteSnapshot(ctx, snapshot.SnapshotID); err != nil {
			log.Warn("Failed to delete working snapshot", "snapshot_id", snapshot.SnapshotID, "error", err)
		}
	}

	return evidence, snapshot, nil
}

func resolveSourceVolume(ctx context.Context, svc *ebs.Service, opts *copyDiskOptions) (ebs.Volume, error) {
	if opts.volumeID != "" {
		return svc.FindVolume(ctx, opts.volumeID)
	}

	instance, err := svc.FindInstance(ctx, opts.instanceID)
	if err != nil {
		return ebs.Volume{}, err
	}

	return svc.GetBootVolume(ctx, instance.InstanceID)
}

func printAcquisition(evidence ebs.Volume, snapshot ebs.Snapshot, keptSnapshot bool) {
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)

	fmt.Println()
	green.Print("✓ ")
	fmt.Print("volume copy ")
	cyan.Printf("%s ", evidence.DisplayName())
	dim.Printf("(id: %s, zone: %s, size: %d GiB)\n", evidence.VolumeID, evidence.AvailabilityZone, evidence.SizeGiB)

	if keptSnapshot {
		green.Print("✓ ")
		fmt.Print("snapshot ")
		cyan.Printf("%s ", snapshot.Name)
		dim.Printf("(id: %s, kept)\n", snapshot.SnapshotID)
	}

	fmt.Println()
	fmt.Printf("Tags: %s\n", formatTags(evidence.Tags))
}

func formatTags(tagMap map[string]string) string {
	if len(tagMap) == 0 {
		return "none"
	}

	out := ""
	for _, key := range []string{tags.Name, tags.AcquisitionID, tags.SourceVolume, tags.Case} {
		if value, ok := tagMap[key]; ok {
			if out != "" {
				out += ", "
			}
			out += fmt.Sprintf("%s=%s", key, value)
		}
	}
	return out
}
