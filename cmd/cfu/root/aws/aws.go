package aws

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/copydisk"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/eks"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/instances"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/rds"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/s3"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/snapshot"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws/volumes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewAWSCmd groups the AWS enumeration and acquisition commands.
func NewAWSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws <command>",
		Short: "Inspect and acquire AWS resources",
		Long:  `Enumerate EC2 instances, EBS volumes, EKS clusters, and RDS databases, and acquire disk evidence from them.`,
		Example: heredoc.Doc(`
			# List instances in a region
			$ cfu aws instances --region us-east-1

			# Copy the boot volume of a compromised instance
			$ cfu aws copy-disk --region us-east-1 --instance i-0123456789abcdef0

			# Run every call under the incident response role
			$ cfu aws instances --region us-east-1 --assume-role arn:aws:iam::123456789012:role/ir-analyst
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("assume-role", "", "ARN of an IAM role to assume for all AWS calls")
	viper.BindPFlag("assume-role", cmd.PersistentFlags().Lookup("assume-role"))

	cmd.AddCommand(instances.NewInstancesCmd())
	cmd.AddCommand(volumes.NewVolumesCmd())
	cmd.AddCommand(copydisk.NewCopyDiskCmd())
	cmd.AddCommand(snapshot.NewSnapshotCmd())
	cmd.AddCommand(eks.NewEKSCmd())
	cmd.AddCommand(rds.NewRDSCmd())
	cmd.AddCommand(s3.NewS3Cmd())

	return cmd
}
