package common

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// defaultRegion is only used to bootstrap calls that are not
// region-scoped, such as DescribeRegions and GetCallerIdentity.
const defaultRegion = "us-east-1"

// InitAWSConfig loads the default AWS configuration for a region. When
// an assume-role ARN is configured (flag, environment, or engagement
// context), every client built from the returned config uses temporary
// credentials for that role so acquisitions run under the incident
// response role rather than the operator's own identity.
func InitAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	log.Debug("AWS credentials loaded", "provider", creds.Source, "region", region)

	if roleARN := viper.GetString("assume-role"); roleARN != "" {
		stsClient := sts.NewFromConfig(cfg)
		provider := stscreds.NewAssumeRoleProvider(stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "cfu"
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
		log.Info("Assuming role for this session", "role", roleARN)
	}

	return cfg, nil
}

// GetCallerIdentity returns the STS identity behind the configured
// credentials. The UserId field feeds copy-name generation so two
// analysts copying the same volume never collide.
func GetCallerIdentity(ctx context.Context, cfg aws.Config) (*sts.GetCallerIdentityOutput, error) {
	stsClient := sts.NewFromConfig(cfg)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}
	return identity, nil
}

// GetRegions resolves which regions a command should operate on. An
// explicit --region list wins, then the engagement context's region,
// and with neither it asks EC2 for every region enabled on the account.
func GetRegions(ctx context.Context, regions []string) ([]string, error) {
	if len(regions) > 0 {
		return regions, nil
	}

	if region := viper.GetString("region"); region != "" {
		return []string{region}, nil
	}

	cfg, err := InitAWSConfig(ctx, defaultRegion)
	if err != nil {
		return nil, err
	}

	ec2Client := ec2.NewFromConfig(cfg)
	output, err := ec2Client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	var names []string
	for _, region := range output.Regions {
		names = append(names, aws.ToString(region.RegionName))
	}
	sort.Strings(names)

	return names, nil
}
