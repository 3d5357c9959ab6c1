// Package kube lists pods, nodes, and workload-covered pods on a cluster
// under investigation. Listings are driven by composed selectors so callers
// can scope to a node, a pod name, or a label set.
package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/google/cloud-forensics-utls/pkg/selector"
)

// Cluster wraps the client of one Kubernetes cluster.
type Cluster struct {
	client kubernetes.Interface
	name   string
}

func NewCluster(client kubernetes.Interface, name string) *Cluster {
	return &Cluster{client: client, name: name}
}

// Name is the cluster's context name, or a fallback identifier when
// running in-cluster.
func (c *Cluster) Name() string {
	return c.name
}

// PodInfo is the slice of a pod this tool reports.
type PodInfo struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	NodeName  string            `json:"node_name,omitempty"`
	Phase     string            `json:"phase"`
	PodIP     string            `json:"pod_ip,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// NodeInfo is the slice of a node this tool reports.
type NodeInfo struct {
	Name           string            `json:"name"`
	InternalIP     string            `json:"internal_ip,omitempty"`
	ExternalIP     string            `json:"external_ip,omitempty"`
	KubeletVersion string            `json:"kubelet_version"`
	Ready          bool              `json:"ready"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// ListPods lists pods matching the selector, cluster-wide when namespace
// is empty.
func (c *Cluster) ListPods(ctx context.Context, namespace string, sel selector.Selector) ([]PodInfo, error) {
	list, err := c.client.CoreV1().Pods(namespace).List(ctx, sel.ListOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]PodInfo, 0, len(list.Items))
	for _, pod := range list.Items {
		pods = append(pods, podInfo(pod))
	}
	return pods, nil
}

// ListNodes lists the cluster's nodes.
func (c *Cluster) ListNodes(ctx context.Context) ([]NodeInfo, error) {
	list, err := c.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]NodeInfo, 0, len(list.Items))
	for _, node := range list.Items {
		nodes = append(nodes, nodeInfo(node))
	}
	return nodes, nil
}

// DeploymentPods lists the pods covered by a deployment's label selector.
// Deployments selecting with match expressions are refused since those
// cannot be rendered as an equality label selector.
func (c *Cluster) DeploymentPods(ctx context.Context, namespace, name string) ([]PodInfo, error) {
	deployment, err := c.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}

	sel, err := workloadSelector(deployment.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("deployment %s/%s: %w", namespace, name, err)
	}
	return c.ListPods(ctx, namespace, sel)
}

func workloadSelector(labelSelector *metav1.LabelSelector) (selector.Selector, error) {
	if labelSelector == nil {
		return selector.Selector{}, fmt.Errorf("workload has no selector")
	}
	if len(labelSelector.MatchExpressions) > 0 {
		return selector.Selector{}, fmt.Errorf("workloads selecting with match expressions are not supported")
	}
	return selector.FromLabels(labelSelector.MatchLabels), nil
}

func podInfo(pod corev1.Pod) PodInfo {
	return PodInfo{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		NodeName:  pod.Spec.NodeName,
		Phase:     string(pod.Status.Phase),
		PodIP:     pod.Status.PodIP,
		Labels:    pod.Labels,
	}
}

func nodeInfo(node corev1.Node) NodeInfo {
	info := NodeInfo{
		Name:           node.Name,
		KubeletVersion: node.Status.NodeInfo.KubeletVersion,
		Labels:         node.Labels,
	}
	for _, addr := range node.Status.Addresses {
		switch addr.Type {
		case corev1.NodeInternalIP:
			info.InternalIP = addr.Address
		case corev1.NodeExternalIP:
			info.ExternalIP = addr.Address
		}
	}
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			info.Ready = cond.Status == corev1.ConditionTrue
			break
		}
	}
	return info
}
