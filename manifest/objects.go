package manifest

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/NickMagic25/kubeegg/types"
)

const (
	componentGame        = "game"
	componentFileManager = "file-manager"
	componentInstaller   = "installer"

	fmPortName = "file-ui"
	// fixed non-root identity for the file manager sidecar
	fmRunAsID int64 = 1000
)

func namespaceObject(cfg types.UserConfig) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   cfg.Namespace,
			Labels: labels(cfg.AppName, ""),
		},
	}
}

func pvcObject(cfg types.UserConfig) (*corev1.PersistentVolumeClaim, error) {
	size := cfg.PVC.Size
	if size == "" {
		size = "10Gi"
	}
	accessModes := cfg.PVC.AccessModes
	if len(accessModes) == 0 {
		accessModes = []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany}
	}
	return claimObject(cfg, cfg.PVC.Name, "", size, accessModes, cfg.PVC.StorageClassName)
}

// fmConfigPVCObject is the sidecar's private claim: single writer, small and
// fixed, never shared with the workload.
func fmConfigPVCObject(cfg types.UserConfig) (*corev1.PersistentVolumeClaim, error) {
	spec := cfg.FileManagerPVC
	name := spec.Name
	if name == "" {
		name = cfg.AppName + "-fm-config"
	}
	size := spec.Size
	if size == "" {
		size = "1Gi"
	}
	accessModes := spec.AccessModes
	if len(accessModes) == 0 {
		accessModes = []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}
	}
	storageClass := spec.StorageClassName
	if storageClass == nil {
		storageClass = cfg.PVC.StorageClassName
	}
	return claimObject(cfg, name, componentFileManager, size, accessModes, storageClass)
}

func claimObject(cfg types.UserConfig, name, component, size string, accessModes []corev1.PersistentVolumeAccessMode, storageClass *string) (*corev1.PersistentVolumeClaim, error) {
	quantity, err := parseQuantity(size, "storage size")
	if err != nil {
		return nil, err
	}
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, component),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: accessModes,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
			StorageClassName: storageClass,
		},
	}, nil
}

func configMapObject(cfg types.UserConfig, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, ""),
		},
		Data: data,
	}
}

func secretObject(cfg types.UserConfig, data map[string]string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, ""),
		},
		Type:       corev1.SecretTypeOpaque,
		StringData: data,
	}
}

func installerConfigMapObject(cfg types.UserConfig) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      installerName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentInstaller),
		},
		Data: map[string]string{
			"install.sh": wrapInstallScript(cfg.Install.Script, cfg.Install.MarkerPath),
		},
	}
}

func deploymentObject(cfg types.UserConfig, ports []types.PortSpec, hasConfigMap, hasSecret bool, secretKeys []string) (*appsv1.Deployment, error) {
	podLabels := labels(cfg.AppName, componentGame)

	var env []corev1.EnvVar
	for _, key := range secretKeys {
		env = append(env, corev1.EnvVar{
			Name: key,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
					Key:                  key,
				},
			},
		})
	}

	var envFrom []corev1.EnvFromSource
	if hasConfigMap {
		envFrom = append(envFrom, corev1.EnvFromSource{
			ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMapName(cfg)},
			},
		})
	}

	container := corev1.Container{
		Name:            "app",
		Image:           cfg.Image,
		ImagePullPolicy: cfg.ImagePullPolicy,
		Env:             env,
		EnvFrom:         envFrom,
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: dataMountPath(cfg)},
		},
		SecurityContext: restrictedContainerContext(),
	}
	for _, port := range ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			Name:          port.Name,
			ContainerPort: port.ContainerPort,
			Protocol:      port.Protocol,
		})
	}
	resources, err := resourceRequirements(cfg.Resources)
	if err != nil {
		return nil, err
	}
	container.Resources = resources

	podSecurity := &corev1.PodSecurityContext{
		SeccompProfile: &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
	}
	if cfg.RunAsUser != nil {
		podSecurity.RunAsUser = cfg.RunAsUser
		podSecurity.RunAsGroup = cfg.RunAsUser
		if *cfg.RunAsUser != 0 {
			podSecurity.RunAsNonRoot = ptr.To(true)
		}
	}

	podSpec := corev1.PodSpec{
		SecurityContext: podSecurity,
		Containers:      []corev1.Container{container},
		Volumes: []corev1.Volume{
			{
				Name: "data",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: cfg.PVC.Name},
				},
			},
		},
	}
	if cfg.Install != nil {
		podSpec.InitContainers = []corev1.Container{installerContainer(cfg, hasConfigMap, hasSecret)}
		podSpec.Volumes = append(podSpec.Volumes, corev1.Volume{
			Name: "installer",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: installerName(cfg)},
				},
			},
		})
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName,
			Namespace: cfg.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels(cfg.AppName, componentGame)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec:       podSpec,
			},
		},
	}, nil
}

// installerContainer wraps the egg install script in an init container. The
// data volume is mounted at the conventional installer path rather than the
// runtime mount path because egg scripts address /mnt/server.
func installerContainer(cfg types.UserConfig, hasConfigMap, hasSecret bool) corev1.Container {
	install := cfg.Install
	entrypoint := install.Entrypoint
	if entrypoint == "" {
		entrypoint = "sh"
	}
	image := install.Image
	if image == "" {
		image = cfg.Image
	}

	var envFrom []corev1.EnvFromSource
	if hasConfigMap {
		envFrom = append(envFrom, corev1.EnvFromSource{
			ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMapName(cfg)},
			},
		})
	}
	if hasSecret {
		envFrom = append(envFrom, corev1.EnvFromSource{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
			},
		})
	}

	return corev1.Container{
		Name:    "installer",
		Image:   image,
		Command: []string{entrypoint, installerMountPath + "/install.sh"},
		EnvFrom: envFrom,
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: installerDataPath},
			{Name: "installer", MountPath: installerMountPath},
		},
		SecurityContext: restrictedContainerContext(),
	}
}

func fmDeploymentObject(cfg types.UserConfig) *appsv1.Deployment {
	fm := cfg.FileManager
	podLabels := labels(cfg.AppName, componentFileManager)

	var env []corev1.EnvVar
	if fm.InjectCredentials {
		for _, key := range []string{"FB_USERNAME", "FB_PASSWORD"} {
			env = append(env, corev1.EnvVar{
				Name: key,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
						Key:                  key,
					},
				},
			})
		}
	}
	env = append(env,
		corev1.EnvVar{Name: "FB_ROOT", Value: fmDataPath(cfg)},
		corev1.EnvVar{Name: "FB_ADDRESS", Value: "0.0.0.0"},
		corev1.EnvVar{Name: "FB_PORT", Value: fmt.Sprintf("%d", fm.Port)},
		corev1.EnvVar{Name: "FB_DATABASE", Value: fmConfigPath(cfg) + "/filebrowser.db"},
	)

	containerContext := restrictedContainerContext()
	containerContext.RunAsNonRoot = ptr.To(true)

	container := corev1.Container{
		Name:  componentFileManager,
		Image: fm.Image,
		Env:   env,
		Ports: []corev1.ContainerPort{
			{Name: fmPortName, ContainerPort: fm.Port, Protocol: corev1.ProtocolTCP},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: fmDataPath(cfg)},
			{Name: "config", MountPath: fmConfigPath(cfg)},
		},
		SecurityContext: containerContext,
	}

	fmPVCName := cfg.FileManagerPVC.Name
	if fmPVCName == "" {
		fmPVCName = cfg.AppName + "-fm-config"
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName + "-ftp",
			Namespace: cfg.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels(cfg.AppName, componentFileManager)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					SecurityContext: &corev1.PodSecurityContext{
						SeccompProfile: &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
						RunAsNonRoot:   ptr.To(true),
						RunAsUser:      ptr.To(fmRunAsID),
						RunAsGroup:     ptr.To(fmRunAsID),
						FSGroup:        ptr.To(fmRunAsID),
					},
					Containers: []corev1.Container{container},
					Volumes: []corev1.Volume{
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: cfg.PVC.Name},
							},
						},
						{
							Name: "config",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: fmPVCName},
							},
						},
					},
				},
			},
		},
	}
}

// serviceObject exposes the game ports inside the cluster only. No Ingress
// or LoadBalancer resource is ever generated.
func serviceObject(cfg types.UserConfig, ports []types.PortSpec) *corev1.Service {
	servicePorts := make([]corev1.ServicePort, 0, len(ports))
	for _, port := range ports {
		servicePorts = append(servicePorts, corev1.ServicePort{
			Name:       port.Name,
			Port:       port.ContainerPort,
			TargetPort: intstr.FromInt32(port.ContainerPort),
			Protocol:   port.Protocol,
		})
	}
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName,
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentGame),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selectorLabels(cfg.AppName, componentGame),
			Ports:    servicePorts,
		},
	}
}

func fmServiceObject(cfg types.UserConfig) *corev1.Service {
	fm := cfg.FileManager
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName + "-ftp",
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentFileManager),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selectorLabels(cfg.AppName, componentFileManager),
			Ports: []corev1.ServicePort{
				{
					Name:       fmPortName,
					Port:       fm.Port,
					TargetPort: intstr.FromInt32(fm.Port),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func restrictedContainerContext() *corev1.SecurityContext {
	return &corev1.SecurityContext{
		AllowPrivilegeEscalation: ptr.To(false),
		Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
	}
}

func resourceRequirements(values *types.ResourceValues) (corev1.ResourceRequirements, error) {
	var requirements corev1.ResourceRequirements
	if values == nil {
		return requirements, nil
	}
	requests := corev1.ResourceList{}
	limits := corev1.ResourceList{}
	entries := []struct {
		value string
		list  corev1.ResourceList
		name  corev1.ResourceName
		field string
	}{
		{values.RequestsCPU, requests, corev1.ResourceCPU, "requests.cpu"},
		{values.RequestsMemory, requests, corev1.ResourceMemory, "requests.memory"},
		{values.LimitsCPU, limits, corev1.ResourceCPU, "limits.cpu"},
		{values.LimitsMemory, limits, corev1.ResourceMemory, "limits.memory"},
	}
	for _, entry := range entries {
		if entry.value == "" {
			continue
		}
		quantity, err := parseQuantity(entry.value, entry.field)
		if err != nil {
			return requirements, err
		}
		entry.list[entry.name] = quantity
	}
	if len(requests) > 0 {
		requirements.Requests = requests
	}
	if len(limits) > 0 {
		requirements.Limits = limits
	}
	return requirements, nil
}

func parseQuantity(value, field string) (resource.Quantity, error) {
	quantity, err := resource.ParseQuantity(value)
	if err != nil {
		return resource.Quantity{}, fmt.Errorf("%s %q: %w", field, value, ErrInvalidQuantity)
	}
	return quantity, nil
}

func configMapName(cfg types.UserConfig) string { return cfg.AppName + "-config" }
func secretName(cfg types.UserConfig) string    { return cfg.AppName + "-secret" }
func installerName(cfg types.UserConfig) string { return cfg.AppName + "-installer" }

func dataMountPath(cfg types.UserConfig) string {
	if cfg.PVC.MountPath != "" {
		return cfg.PVC.MountPath
	}
	return "/home/container"
}

func fmDataPath(cfg types.UserConfig) string {
	if cfg.FileManager.DataMountPath != "" {
		return cfg.FileManager.DataMountPath
	}
	return defaultFMDataPath
}

func fmConfigPath(cfg types.UserConfig) string {
	if cfg.FileManager.ConfigMountPath != "" {
		return cfg.FileManager.ConfigMountPath
	}
	return defaultFMConfigPath
}
