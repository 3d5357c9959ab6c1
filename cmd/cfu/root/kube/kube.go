package kube

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// NewKubeCmd groups the Kubernetes enumeration commands. Connection
// flags follow kubectl conventions so responders can point cfu at a
// cluster the same way they point kubectl at it.
func NewKubeCmd() *cobra.Command {
	configFlags := genericclioptions.NewConfigFlags(true)

	cmd := &cobra.Command{
		Use:   "kube <command>",
		Short: "Inspect Kubernetes clusters",
		Example: heredoc.Doc(`
			# List every pod in the cluster
			$ cfu kube pods

			# List the pods running on a node
			$ cfu kube pods --node ip-10-0-1-17.ec2.internal

			# List the pods of a deployment
			$ cfu kube deployment webserver -n prod
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configFlags.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewPodsCmd(configFlags))
	cmd.AddCommand(NewNodesCmd(configFlags))
	cmd.AddCommand(NewDeploymentCmd(configFlags))

	return cmd
}
