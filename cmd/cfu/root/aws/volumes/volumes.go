package volumes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/google/cloud-forensics-utls/pkg/ebs"
	"github.com/spf13/cobra"
)

// NewVolumesCmd creates a command that lists EBS volumes.
func NewVolumesCmd() *cobra.Command {
	var regions []string
	var instanceID string

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "List EBS volumes",
		Example: heredoc.Doc(`
			# List volumes in a region
			$ cfu aws volumes --region us-east-1

			# List the volumes attached to an instance
			$ cfu aws volumes --region us-east-1 --instance i-0123456789abcdef0

			# List volumes in every enabled region as JSON
			$ cfu aws volumes -o json
		`),
		RunE: runList(&regions, &instanceID),
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", []string{}, "AWS Region(s)")
	cmd.Flags().StringVar(&instanceID, "instance", "", "Only list volumes attached to this instance ID")
	cliutil.AddOutputFlags(cmd)

	return cmd
}

func runList(regions *[]string, instanceID *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		regionsToScan, err := common.GetRegions(ctx, *regions)
		if err != nil {
			return err
		}

		var filters []types.Filter
		if *instanceID != "" {
			filters = append(filters, types.Filter{
				Name:   aws.String("attachment.instance-id"),
				Values: []string{*instanceID},
			})
		}

		log.Debug("Listing EBS volumes", "regions", regionsToScan)

		var allVolumes []ebs.Volume
		var mu sync.Mutex
		var wg sync.WaitGroup
		var scanErrors []error

		for _, r := range regionsToScan {
			wg.Add(1)
			go func(regionName string) {
				defer wg.Done()

				ec2Client, err := initEC2Client(ctx, regionName)
				if err != nil {
					log.Error("Failed to initialize EC2 client", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				volumes, err := ebs.NewService(ec2Client, regionName).ListVolumes(ctx, filters...)
				if err != nil {
					log.Error("Failed to list volumes", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				if len(volumes) > 0 {
					mu.Lock()
					allVolumes = append(allVolumes, volumes...)
					mu.Unlock()
				}
			}(r)
		}

		wg.Wait()

		if len(scanErrors) > 0 {
			if len(allVolumes) == 0 {
				return errors.Join(scanErrors...)
			}
			log.Warn("Some regions could not be listed", "errors", len(scanErrors))
		}

		sort.Slice(allVolumes, func(i, j int) bool {
			if allVolumes[i].Region != allVolumes[j].Region {
				return allVolumes[i].Region < allVolumes[j].Region
			}
			return allVolumes[i].VolumeID < allVolumes[j].VolumeID
		})

		table := cliutil.NewTable("VOLUME ID", "NAME", "REGION", "AZ", "STATE", "SIZE", "TYPE", "ATTACHED TO")
		for _, volume := range allVolumes {
			table.AddRow(
				volume.VolumeID,
				volume.Name,
				volume.Region,
				volume.AvailabilityZone,
				volume.State,
				fmt.Sprintf("%d GiB", volume.SizeGiB),
				volume.VolumeType,
				volume.InstanceID,
			)
		}

		return cliutil.RenderOutput(cmd, table, allVolumes)
	}
}

func initEC2Client(ctx context.Context, region string) (*ec2.Client, error) {
	cfg, err := common.InitAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return ec2.NewFromConfig(cfg, func(o *ec2.Options) {
		o.RetryMaxAttempts = 3
		o.RetryMode = aws.RetryModeStandard
	}), nil
}
