package kube

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// NewNodesCmd creates a command that lists cluster nodes. Node internal
// IPs and names are how pod findings get mapped back to the EC2
// instances that need disk acquisition.
func NewNodesCmd(configFlags *genericclioptions.ConfigFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List cluster nodes",
		Example: heredoc.Doc(`
			# List the nodes of the current cluster
			$ cfu kube nodes

			# Print node names and internal IPs only
			$ cfu kube nodes --query '.[] | {name, internal_ip}'
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := loadCluster(configFlags)
			if err != nil {
				return err
			}

			nodes, err := cluster.ListNodes(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("Found nodes", "cluster", cluster.Name(), "count", len(nodes))

			table := cliutil.NewTable("NAME", "INTERNAL IP", "EXTERNAL IP", "KUBELET", "READY")
			for _, node := range nodes {
				table.AddRow(
					node.Name,
					node.InternalIP,
					node.ExternalIP,
					node.KubeletVersion,
					fmt.Sprintf("%t", node.Ready),
				)
			}

			return cliutil.RenderOutput(cmd, table, nodes)
		},
	}

	cliutil.AddOutputFlags(cmd)

	return cmd
}
