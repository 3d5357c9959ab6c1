package kube

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/internal/cliutil"
	"github.com/google/cloud-forensics-utls/pkg/selector"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// NewPodsCmd creates a command that lists pods, filtered the way the
// acquisition workflow needs: by node, by name, by label, or down to
// the pods still running.
func NewPodsCmd(configFlags *genericclioptions.ConfigFlags) *cobra.Command {
	var nodeName, podName string
	var running bool
	var labels []string

	cmd := &cobra.Command{
		Use:   "pods",
		Short: "List pods",
		Example: heredoc.Doc(`
			# List every pod in the cluster
			$ cfu kube pods

			# List the pods of a namespace that are still running
			$ cfu kube pods -n prod --running

			# List the pods on a node, a common pivot after an instance is flagged
			$ cfu kube pods --node ip-10-0-1-17.ec2.internal

			# Filter by label
			$ cfu kube pods -l app=webserver -l tier=frontend
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := buildSelector(podName, nodeName, running, labels)
			if err != nil {
				return err
			}

			cluster, err := loadCluster(configFlags)
			if err != nil {
				return err
			}

			pods, err := cluster.ListPods(cmd.Context(), namespaceScope(configFlags), sel)
			if err != nil {
				return err
			}
			log.Info("Found pods", "cluster", cluster.Name(), "count", len(pods))

			table := cliutil.NewTable("NAME", "NAMESPACE", "NODE", "PHASE", "IP")
			for _, pod := range pods {
				table.AddRow(pod.Name, pod.Namespace, pod.NodeName, pod.Phase, pod.PodIP)
			}

			return cliutil.RenderOutput(cmd, table, pods)
		},
	}

	cmd.Flags().StringVar(&nodeName, "node", "", "Only pods scheduled on this node")
	cmd.Flags().StringVar(&podName, "name", "", "Only the pod with this name")
	cmd.Flags().BoolVar(&running, "running", false, "Only pods that have not finished or failed")
	cmd.Flags().StringArrayVarP(&labels, "label", "l", nil, "Only pods with this label, key=value, repeatable")
	cliutil.AddOutputFlags(cmd)

	return cmd
}

// buildSelector turns the pod filter flags into a selector.
func buildSelector(podName, nodeName string, running bool, labels []string) (selector.Selector, error) {
	var components []selector.Component

	if podName != "" {
		components = append(components, selector.Name(podName))
	}
	if nodeName != "" {
		components = append(components, selector.Node(nodeName))
	}
	if running {
		components = append(components, selector.Running())
	}
	for _, label := range labels {
		key, value, found := strings.Cut(label, "=")
		if !found || key == "" {
			return selector.Selector{}, fmt.Errorf("invalid label %q, expected key=value", label)
		}
		components = append(components, selector.Label(key, value))
	}

	return selector.New(components...), nil
}
