package kube

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/pkg/kube"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// loadCluster connects to the cluster selected by the kubectl-style
// connection flags. It tries the kubeconfig sources first (--kubeconfig,
// KUBECONFIG, ~/.kube/config) and falls back to in-cluster config when
// running inside a pod.
func loadCluster(configFlags *genericclioptions.ConfigFlags) (*kube.Cluster, error) {
	config, err := configFlags.ToRESTConfig()
	if err != nil {
		log.Debug("No kubeconfig found, trying in-cluster config", "error", err)

		inCluster, inErr := rest.InClusterConfig()
		if inErr != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		config = inCluster
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build Kubernetes client: %w", err)
	}

	name := clusterName(configFlags)
	log.Debug("Connected to cluster", "context", name)

	return kube.NewCluster(clientset, name), nil
}

// clusterName returns a human-meaningful name for the target cluster,
// typically the kubeconfig context like "production" or "minikube".
func clusterName(configFlags *genericclioptions.ConfigFlags) string {
	if configFlags.Context != nil && *configFlags.Context != "" {
		return *configFlags.Context
	}

	raw, err := configFlags.ToRawKubeConfigLoader().RawConfig()
	if err == nil && raw.CurrentContext != "" {
		return raw.CurrentContext
	}

	return inClusterName()
}

// inClusterName derives a fallback identifier when running inside a pod,
// where no kubeconfig context exists. The pod's namespace is the closest
// thing to a name available from the service account mount.
func inClusterName() string {
	nsBytes, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace")
	if err != nil {
		return "unknown-cluster"
	}
	return strings.TrimSpace(string(nsBytes))
}

// namespaceScope resolves the namespace flag, where empty means every
// namespace.
func namespaceScope(configFlags *genericclioptions.ConfigFlags) string {
	if configFlags.Namespace == nil {
		return ""
	}
	return *configFlags.Namespace
}
