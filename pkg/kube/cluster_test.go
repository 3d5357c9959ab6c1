package kube

import (
	"context"
	"strings"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/google/cloud-forensics-utls/pkg/selector"
)

func testPod(name, namespace, node string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec:       corev1.PodSpec{NodeName: node},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning, PodIP: "10.0.0.10"},
	}
}

func TestListPods_AllNamespaces(t *testing.T) {
	clientset := fake.NewClientset(
		testPod("web-1", "default", "worker-1", nil),
		testPod("api-1", "payments", "worker-2", nil),
	)

	pods, err := NewCluster(clientset, "test").ListPods(context.Background(), "", selector.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pods) != 2 {
		t.Fatalf("expected 2 pods, got %d", len(pods))
	}
}

func TestListPods_NamespaceScoped(t *testing.T) {
	clientset := fake.NewClientset(
		testPod("web-1", "default", "worker-1", nil),
		testPod("api-1", "payments", "worker-2", nil),
	)

	pods, err := NewCluster(clientset, "test").ListPods(context.Background(), "payments", selector.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "api-1" {
		t.Fatalf("expected only the payments pod, got %+v", pods)
	}
}

func TestListPods_LabelSelector(t *testing.T) {
	clientset := fake.NewClientset(
		testPod("web-1", "default", "worker-1", map[string]string{"app": "web"}),
		testPod("db-1", "default", "worker-1", map[string]string{"app": "db"}),
	)

	sel := selector.FromLabels(map[string]string{"app": "web"})
	pods, err := NewCluster(clientset, "test").ListPods(context.Background(), "default", sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "web-1" {
		t.Fatalf("expected only the web pod, got %+v", pods)
	}
}

func TestListPods_FieldSelectorReachesAPI(t *testing.T) {
	clientset := fake.NewClientset()

	var fieldSelector string
	clientset.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		fieldSelector = action.(k8stesting.ListAction).GetListRestrictions().Fields.String()
		return true, &corev1.PodList{}, nil
	})

	sel := selector.New(selector.Node("worker-1"), selector.Running())
	_, err := NewCluster(clientset, "test").ListPods(context.Background(), "", sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(fieldSelector, "spec.nodeName=worker-1") {
		t.Fatalf("expected node constraint in field selector, got %q", fieldSelector)
	}
	if !strings.Contains(fieldSelector, "status.phase!=Failed") || !strings.Contains(fieldSelector, "status.phase!=Succeeded") {
		t.Fatalf("expected phase constraints in field selector, got %q", fieldSelector)
	}
}

func TestListPods_Mapping(t *testing.T) {
	clientset := fake.NewClientset(
		testPod("web-1", "default", "worker-1", map[string]string{"app": "web"}),
	)

	pods, err := NewCluster(clientset, "test").ListPods(context.Background(), "default", selector.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pod := pods[0]
	if pod.Namespace != "default" || pod.NodeName != "worker-1" {
		t.Fatalf("unexpected pod projection: %+v", pod)
	}
	if pod.Phase != "Running" || pod.PodIP != "10.0.0.10" {
		t.Fatalf("unexpected pod status projection: %+v", pod)
	}
}

func TestListNodes(t *testing.T) {
	clientset := fake.NewClientset(&corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "worker-1", Labels: map[string]string{"role": "worker"}},
		Status: corev1.NodeStatus{
			NodeInfo: corev1.NodeSystemInfo{KubeletVersion: "v1.34.0"},
			Addresses: []corev1.NodeAddress{
				{Type: corev1.NodeInternalIP, Address: "10.0.0.5"},
				{Type: corev1.NodeExternalIP, Address: "203.0.113.7"},
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	})

	nodes, err := NewCluster(clientset, "test").ListNodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}

	node := nodes[0]
	if node.InternalIP != "10.0.0.5" || node.ExternalIP != "203.0.113.7" {
		t.Fatalf("unexpected addresses: %+v", node)
	}
	if !node.Ready {
		t.Fatalf("expected node to be ready: %+v", node)
	}
	if node.KubeletVersion != "v1.34.0" {
		t.Fatalf("unexpected kubelet version: %+v", node)
	}
}

func TestDeploymentPods(t *testing.T) {
	clientset := fake.NewClientset(
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
			Spec: appsv1.DeploymentSpec{
				Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "web"}},
			},
		},
		testPod("web-1", "default", "worker-1", map[string]string{"app": "web"}),
		testPod("db-1", "default", "worker-1", map[string]string{"app": "db"}),
	)

	pods, err := NewCluster(clientset, "test").DeploymentPods(context.Background(), "default", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "web-1" {
		t.Fatalf("expected only the covered pod, got %+v", pods)
	}
}

func TestDeploymentPods_MatchExpressionsRefused(t *testing.T) {
	clientset := fake.NewClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{
				MatchExpressions: []metav1.LabelSelectorRequirement{
					{Key: "app", Operator: metav1.LabelSelectorOpExists},
				},
			},
		},
	})

	_, err := NewCluster(clientset, "test").DeploymentPods(context.Background(), "default", "web")
	if err == nil {
		t.Fatal("expected error for match expressions")
	}
	if !strings.Contains(err.Error(), "match expressions") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeploymentPods_MissingDeployment(t *testing.T) {
	clientset := fake.NewClientset()

	_, err := NewCluster(clientset, "test").DeploymentPods(context.Background(), "default", "ghost")
	if err == nil {
		t.Fatal("expected error for missing deployment")
	}
	if !strings.Contains(err.Error(), "default/ghost") {
		t.Fatalf("unexpected error: %v", err)
	}
}
