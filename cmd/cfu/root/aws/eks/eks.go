package eks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/Masterminds/semver"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/common"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/spf13/cobra"
)

// Cluster is the describable state of an EKS cluster, decomposed so
// responders can pivot on version and network without re-querying AWS.
type Cluster struct {
	Name            string    `json:"name"`
	ARN             string    `json:"arn"`
	Region          string    `json:"region"`
	Status          string    `json:"status"`
	Version         string    `json:"version"`
	VersionMajor    int64     `json:"version_major"`
	VersionMinor    int64     `json:"version_minor"`
	VersionPatch    int64     `json:"version_patch"`
	PlatformVersion string    `json:"platform_version"`
	Endpoint        string    `json:"endpoint"`
	VpcID           string    `json:"vpc_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewEKSCmd creates a command that lists EKS clusters.
func NewEKSCmd() *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "eks",
		Short: "List EKS clusters",
		Example: heredoc.Doc(`
			# List clusters in a region
			$ cfu aws eks --region us-west-2

			# List clusters in every enabled region
			$ cfu aws eks

			# Show cluster API endpoints
			$ cfu aws eks --region us-west-2 --query '.[] | {name, endpoint}'
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

		log.Debug("Listing EKS clusters", "regions", regionsToScan)

		var allClusters []Cluster
		var mu sync.Mutex
		var wg sync.WaitGroup
		var scanErrors []error

		for _, r := range regionsToScan {
			wg.Add(1)
			go func(regionName string) {
				defer wg.Done()

				eksClient, err := initEKSClient(ctx, regionName)
				if err != nil {
					log.Error("Failed to initialize EKS client", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				clusters, err := listClusters(ctx, eksClient, regionName)
				if err != nil {
					log.Error("Failed to list clusters", "region", regionName, "error", err)
					mu.Lock()
					scanErrors = append(scanErrors, fmt.Errorf("region %s: %w", regionName, err))
					mu.Unlock()
					return
				}

				if len(clusters) > 0 {
					mu.Lock()
					allClusters = append(allClusters, clusters...)
					mu.Unlock()
				}
			}(r)
		}

		wg.Wait()

		if len(scanErrors) > 0 {
			if len(allClusters) == 0 {
				return errors.Join(scanErrors...)
			}
			log.Warn("Some regions could not be listed", "errors", len(scanErrors))
		}

		sort.Slice(allClusters, func(i, j int) bool {
			if allClusters[i].Region != allClusters[j].Region {
				return allClusters[i].Region < allClusters[j].Region
			}
			return allClusters[i].Name < allClusters[j].Name
		})

		table := cliutil.NewTable("NAME", "REGION", "STATUS", "VERSION", "PLATFORM", "VPC")
		for _, cluster := range allClusters {
			table.AddRow(
				cluster.Name,
				cluster.Region,
				cluster.Status,
				cluster.Version,
				cluster.PlatformVersion,
				cluster.VpcID,
			)
		}

		return cliutil.RenderOutput(cmd, table, allClusters)
	}
}

func initEKSClient(ctx context.Context, region string) (*eks.Client, error) {
	cfg, err := common.InitAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return eks.NewFromConfig(cfg), nil
}

func listClusters(ctx context.Context, eksClient *eks.Client, region string) ([]Cluster, error) {
	var clusters []Cluster
	var nextToken *string

	for {
		resp, err := eksClient.ListClusters(ctx, &eks.ListClustersInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list EKS clusters: %w", err)
		}

		for _, clusterName := range resp.Clusters {
			cluster, err := eksClient.DescribeCluster(ctx, &eks.DescribeClusterInput{
				Name: &clusterName,
			})
			if err != nil {
				log.Error("Failed to describe cluster", "name", clusterName, "error", err)
				continue
			}
			clusters = append(clusters, mapCluster(cluster.Cluster, region))
		}

		if resp.NextToken == nil {
			break
		}
		nextToken = resp.NextToken
	}

	log.Debug("Found EKS clusters", "region", region, "count", len(clusters))
	return clusters, nil
}

func mapCluster(cluster *types.Cluster, region string) Cluster {
	out := Cluster{
		Name:            aws.ToString(cluster.Name),
		ARN:             aws.ToString(cluster.Arn),
		Region:          region,
		Status:          normalizeStatus(cluster.Status),
		Version:         aws.ToString(cluster.Version),
		PlatformVersion: aws.ToString(cluster.PlatformVersion),
		Endpoint:        aws.ToString(cluster.Endpoint),
		CreatedAt:       aws.ToTime(cluster.CreatedAt),
	}

	if cluster.ResourcesVpcConfig != nil {
		out.VpcID = aws.ToString(cluster.ResourcesVpcConfig.VpcId)
	}

	if version, err := semver.NewVersion(out.Version); err == nil {
		out.VersionMajor = version.Major()
		out.VersionMinor = version.Minor()
		out.VersionPatch = version.Patch()
	} else if out.Version != "" {
		log.Error("Failed to parse Kubernetes version", "version", out.Version, "error", err)
	}

	return out
}

func normalizeStatus(status types.ClusterStatus) string {
	switch status {
	case types.ClusterStatusActive:
		return "running"
	case types.ClusterStatusUpdating:
		return "updating"
	case types.ClusterStatusCreating:
		return "creating"
	case types.ClusterStatusDeleting:
		return "deleting"
	case types.ClusterStatusFailed:
		return "failed"
	}
	return "unknown"
}
