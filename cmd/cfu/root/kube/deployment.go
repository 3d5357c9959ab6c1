package kube

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// NewDeploymentCmd creates a command that lists the pods of a
// deployment, resolved through the deployment's own label selector.
func NewDeploymentCmd(configFlags *genericclioptions.ConfigFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployment <name>",
		Short: "List the pods of a deployment",
		Example: heredoc.Doc(`
			# List the pods of a deployment
			$ cfu kube deployment webserver -n prod
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := loadCluster(configFlags)
			if err != nil {
				return err
			}

			// Deployments are namespace-scoped, unlike the pod listing.
			namespace := namespaceScope(configFlags)
			if namespace == "" {
				namespace = "default"
			}

			pods, err := cluster.DeploymentPods(cmd.Context(), namespace, args[0])
			if err != nil {
				return err
			}

			table := cliutil.NewTable("NAME", "NAMESPACE", "NODE", "PHASE", "IP")
			for _, pod := range pods {
				table.AddRow(pod.Name, pod.Namespace, pod.NodeName, pod.Phase, pod.PodIP)
			}

			return cliutil.RenderOutput(cmd, table, pods)
		},
	}

	cliutil.AddOutputFlags(cmd)

	return cmd
}
