package rds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/spf13/cobra"
)

// DBInstance is the describable state of an RDS database instance.
type DBInstance struct {
	Identifier       string `json:"identifier"`
	ARN              string `json:"arn"`
	Region           string `json:"region"`
	AvailabilityZone string `json:"availability_zone"`
	Engine           string `json:"engine"`
	EngineVersion    string `json:"engine_version"`
	Status           string `json:"status"`
	Endpoint         string `json:"endpoint"`
	Port             int32  `json:"port"`
	AllocatedStorage int32  `json:"allocated_storage_gib"`
	Encrypted        bool   `json:"encrypted"`
	MultiAZ          bool   `json:"multi_az"`
}

// NewInstancesCmd creates a command that lists RDS database instances.
func NewInstancesCmd() *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List RDS database instances",
		Example: heredoc.Doc(`
			# List database instances in a region
			$ cfu aws rds instances --region us-east-1

			# List database instances in every enabled region
			$ cfu aws rds instances
		`),
		RunE: runList(&regions),
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", []string{}, "AWS Region(s)")
	cliutil.AddOutputFlags(cmd)

	return cmd
}

func runList(regions *[]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		regionsToScan, err := common.GetRegions(ctx, *regions)
		if err != nil {
			return err
		}

		log.Debug("Listing RDS instances", "regions", regionsToScan)

		var allInstances []DBInstance
		var mu sync.Mutex
		var wg sync.WaitGroup
		var scanErrors []error

		for _, r := range regionsToScan {
			wg.Add(1)
			go func(regionName string) {
				defer wg.Done()

				rdsClient, err := initRDSClient(ctx, regionName)
				if err != nil {
					log.Error("Failed to initialize RDS client", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				instances, err := listDBInstances(ctx, rdsClient, regionName)
				if err != nil {
					log.Error("Failed to list database instances", "region", regionName, "error", err)
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
			return allInstances[i].Identifier < allInstances[j].Identifier
		})

		table := cliutil.NewTable("IDENTIFIER", "REGION", "ENGINE", "VERSION", "STATUS", "ENDPOINT", "STORAGE", "ENCRYPTED")
		for _, instance := range allInstances {
			table.AddRow(
				instance.Identifier,
				instance.Region,
				instance.Engine,
				instance.EngineVersion,
				instance.Status,
				instance.Endpoint,
				fmt.Sprintf("%d GiB", instance.AllocatedStorage),
				fmt.Sprintf("%t", instance.Encrypted),
			)
		}

		return cliutil.RenderOutput(cmd, table, allInstances)
	}
}

// listDBInstances pages through DescribeDBInstances. RDS paginates with
// a Marker rather than a NextToken.
func listDBInstances(ctx context.Context, rdsClient *rds.Client, region string) ([]DBInstance, error) {
	var instances []DBInstance
	var marker *string

	for {
		output, err := rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe database instances: %w", err)
		}

		for _, db := range output.DBInstances {
			instances = append(instances, mapDBInstance(db, region))
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	log.Debug("Found RDS instances", "region", region, "count", len(instances))
	return instances, nil
}

func mapDBInstance(db types.DBInstance, region string) DBInstance {
	out := DBInstance{
		Identifier:       aws.ToString(db.DBInstanceIdentifier),
		ARN:              aws.ToString(db.DBInstanceArn),
		Region:           region,
		AvailabilityZone: aws.ToString(db.AvailabilityZone),
		Engine:           aws.ToString(db.Engine),
		EngineVersion:    aws.ToString(db.EngineVersion),
		Status:           aws.ToString(db.DBInstanceStatus),
		AllocatedStorage: aws.ToInt32(db.AllocatedStorage),
		Encrypted:        aws.ToBool(db.StorageEncrypted),
		MultiAZ:          aws.ToBool(db.MultiAZ),
	}

	if db.Endpoint != nil {
		out.Endpoint = aws.ToString(db.Endpoint.Address)
		out.Port = aws.ToInt32(db.Endpoint.Port)
	}

	return out
}
