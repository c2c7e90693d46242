package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	containerName = "command"

	// maxLogBytes caps how much output is pulled back from a sandbox.
	maxLogBytes = 1 << 20
)

// KubernetesConfig holds configuration for the Kubernetes driver.
type KubernetesConfig struct {
	// Namespace where sandbox pods are created
	Namespace string
	// Image the command runs in
	Image string
	// ServiceAccount for sandbox pods (optional)
	ServiceAccount string
	// Resource limits for sandbox pods
	CPULimit    string
	MemoryLimit string
}

// KubernetesDriver implements Driver by running each command in its own pod.
type KubernetesDriver struct {
	clientset kubernetes.Interface
	config    KubernetesConfig
	logger    *slog.Logger
}

// homeDir returns the user's home directory.
func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return os.Getenv("USERPROFILE") // Windows
}

// NewKubernetesDriver creates a Kubernetes-backed driver.
// Tries in-cluster configuration first, falls back to kubeconfig for local development.
func NewKubernetesDriver(cfg KubernetesConfig, logger *slog.Logger) (*KubernetesDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := filepath.Join(homeDir(), ".kube", "config")
		logger.Debug("in-cluster config not available, trying kubeconfig", "path", kubeconfig)
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return newKubernetesDriver(clientset, cfg, logger), nil
}

func newKubernetesDriver(clientset kubernetes.Interface, cfg KubernetesConfig, logger *slog.Logger) *KubernetesDriver {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.Image == "" {
		cfg.Image = "busybox:stable"
	}
	if cfg.CPULimit == "" {
		cfg.CPULimit = "500m"
	}
	if cfg.MemoryLimit == "" {
		cfg.MemoryLimit = "256Mi"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &KubernetesDriver{
		clientset: clientset,
		config:    cfg,
		logger:    logger,
	}
}

// Name implements Driver.
func (d *KubernetesDriver) Name() string {
	return "kubernetes"
}

// Healthy probes the control plane with a bounded list call.
func (d *KubernetesDriver) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := d.clientset.CoreV1().Pods(d.config.Namespace).List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	return nil
}

// Create implements Driver.Create by creating a single pod that runs the
// command under `sh -c` and never restarts.
func (d *KubernetesDriver) Create(ctx context.Context, command string) (*Handle, error) {
	name := fmt.Sprintf("task-run-%s", uuid.NewString())

	resources := corev1.ResourceRequirements{
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(d.config.CPULimit),
			corev1.ResourceMemory: resource.MustParse(d.config.MemoryLimit),
		},
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: d.config.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "taskrunner",
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:      containerName,
					Image:     d.config.Image,
					Command:   []string{"sh", "-c", command},
					Resources: resources,
				},
			},
		},
	}

	if d.config.ServiceAccount != "" {
		pod.Spec.ServiceAccountName = d.config.ServiceAccount
	}

	created, err := d.clientset.CoreV1().Pods(d.config.Namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pod: %v", ErrProvisionFailure, err)
	}

	d.logger.Info("created sandbox pod", "pod", created.Name, "namespace", d.config.Namespace)

	return &Handle{
		ID:        created.Name,
		Driver:    d.Name(),
		CreatedAt: time.Now(),
	}, nil
}

// Status implements Driver.Status by reading the pod's phase.
func (d *KubernetesDriver) Status(ctx context.Context, h *Handle) (Phase, error) {
	pod, err := d.clientset.CoreV1().Pods(d.config.Namespace).Get(ctx, h.ID, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return PhaseVanished, nil
		}
		return "", fmt.Errorf("failed to get pod %s: %w", h.ID, err)
	}

	switch pod.Status.Phase {
	case corev1.PodPending:
		return PhaseCreating, nil
	case corev1.PodRunning:
		return PhaseRunning, nil
	case corev1.PodSucceeded:
		return PhaseSucceeded, nil
	case corev1.PodFailed:
		return PhaseFailed, nil
	default:
		// PodUnknown: the node stopped reporting, nothing more will be observed.
		return PhaseVanished, nil
	}
}

// FetchOutput implements Driver.FetchOutput by reading the pod's logs.
// Failures are logged, not returned; whatever was captured is kept.
func (d *KubernetesDriver) FetchOutput(ctx context.Context, h *Handle) string {
	limit := int64(maxLogBytes)
	req := d.clientset.CoreV1().Pods(d.config.Namespace).GetLogs(h.ID, &corev1.PodLogOptions{
		Container:  containerName,
		LimitBytes: &limit,
	})

	stream, err := req.Stream(ctx)
	if err != nil {
		d.logger.Warn("failed to fetch sandbox output", "pod", h.ID, "error", err)
		return ""
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(stream, maxLogBytes)); err != nil {
		d.logger.Warn("sandbox output truncated", "pod", h.ID, "error", err)
	}
	return buf.String()
}

// Delete implements Driver.Delete by removing the pod immediately.
// A pod that is already gone is fine.
func (d *KubernetesDriver) Delete(ctx context.Context, h *Handle) error {
	grace := int64(0)
	err := d.clientset.CoreV1().Pods(d.config.Namespace).Delete(ctx, h.ID, metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete pod %s: %w", h.ID, err)
	}

	d.logger.Info("deleted sandbox pod", "pod", h.ID, "namespace", d.config.Namespace)
	return nil
}
