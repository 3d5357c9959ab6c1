package instances

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
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

// NewInstancesCmd creates a command that lists EC2 instances.
func NewInstancesCmd() *cobra.Command {
	var regions []string
	var rawFilters []string

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List EC2 instances",
		Example: heredoc.Doc(`
			# List instances in a region
			$ cfu aws instances --region us-east-1

			# List instances across several regions
			$ cfu aws instances --region us-east-1 --region eu-west-1

			# List the instances of a VPC that are still running
			$ cfu aws instances --region us-east-1 \
			    --filter vpc-id=vpc-0123456789abcdef0 --filter instance-state-name=running

			# Print instance IDs only
			$ cfu aws instances --region us-east-1 --query '.[].instance_id'
		`),
		RunE: runList(&regions, &rawFilters),
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", []string{}, "AWS Region(s)")
	cmd.Flags().StringArrayVar(&rawFilters, "filter", nil, "EC2 filter, name=value[,value], repeatable")
	cliutil.AddOutputFlags(cmd)

	return cmd
}

func runList(regions *[]string, rawFilters *[]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filters, err := parseFilters(*rawFilters)
		if err != nil {
			return err
		}

		regionsToScan, err := common.GetRegions(ctx, *regions)
		if err != nil {
			return err
		}

		log.Debug("Listing EC2 instances", "regions", regionsToScan)

		var allInstances []ebs.Instance
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

				instances, err := ebs.NewService(ec2Client, regionName).ListInstances(ctx, filters...)
				if err != nil {
					log.Error("Failed to list instances", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				if len(instances) > 0 {
					mu.Lock()
					allInstances = append(allInstances, instances...)
					mu.Unlock()
				}
			}(r)
		}

		wg.Wait()

		if len(scanErrors) > 0 {
			if len(allInstances) == 0 {
				return errors.Join(scanErrors...)
			}
			log.Warn("Some regions could not be listed", "errors", len(scanErrors))
		}

		sort.Slice(allInstances, func(i, j int) bool {
			if allInstances[i].Region != allInstances[j].Region {
				return allInstances[i].Region < allInstances[j].Region
			}
			return allInstances[i].InstanceID < allInstances[j].InstanceID
		})

		table := cliutil.NewTable("INSTANCE ID", "NAME", "REGION", "STATE", "TYPE", "PRIVATE IP", "VOLUMES")
		for _, instance := range allInstances {
			table.AddRow(
				instance.InstanceID,
				instance.Name,
				instance.Region,
				instance.State,
				instance.InstanceType,
				instance.PrivateIP,
				strings.Join(instance.VolumeIDs, ","),
			)
		}

		return cliutil.RenderOutput(cmd, table, allInstances)
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

// parseFilters turns repeated name=value[,value] flags into EC2 filters.
func parseFilters(rawFilters []string) ([]types.Filter, error) {
	var filters []types.Filter
	for _, raw := range rawFilters {
		name, values, found := strings.Cut(raw, "=")
		if !found || name == "" || values == "" {
			return nil, fmt.Errorf("invalid filter %q, expected name=value[,value]", raw)
		}
		filters = append(filters, types.Filter{
			Name:   aws.String(name),
			Values: strings.Split(values, ","),
		})
	}
	return filters, nil
}
