package eks

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

// RoleArnAnnotation binds a service account to an IAM role.
const RoleArnAnnotation = "eks.amazonaws.com/role-arn"

// ServiceAccountProps configures a ServiceAccount.
type ServiceAccountProps struct {
	Cluster ICluster
	// Name defaults to the construct's unique id in lower case.
	Name string
	// Namespace defaults to "default".
	Namespace   string
	Annotations map[string]string
	Labels      map[string]string
}

func (p ServiceAccountProps) validate() error {
	if p.Cluster == nil {
		return errors.New("Cluster is required")
	}
	var err error
	if p.Name != "" && !core.IsUnresolved(p.Name) {
		for _, msg := range validation.IsDNS1123Subdomain(p.Name) {
			err = multierr.Append(err, fmt.Errorf("Name %q: %s", p.Name, msg))
		}
	}
	if p.Namespace != "" && !core.IsUnresolved(p.Namespace) {
		for _, msg := range validation.IsDNS1123Label(p.Namespace) {
			err = multierr.Append(err, fmt.Errorf("Namespace %q: %s", p.Namespace, msg))
		}
	}
	return err
}

// ServiceAccount is a Kubernetes service account whose pods assume an IAM
// role through the cluster's OIDC provider (IRSA).
type ServiceAccount struct {
	node      *core.Node
	role      *iam.Role
	manifest  *KubernetesManifest
	name      string
	namespace string
}

// NewServiceAccount creates the IAM role and the service account.
func NewServiceAccount(scope core.Construct, id string, props ServiceAccountProps) (*ServiceAccount, error) {
	if err := props.validate(); err != nil {
		return nil, fmt.Errorf("service account %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	sa := &ServiceAccount{node: node, name: props.Name, namespace: props.Namespace}
	if sa.name == "" {
		sa.name = strings.ToLower(node.UniqueID())
	}
	if sa.namespace == "" {
		sa.namespace = "default"
	}

	provider, err := props.Cluster.OpenIdConnectProvider()
	if err != nil {
		return nil, fmt.Errorf("service account %s: %w", id, err)
	}
	issuer := provider.Issuer()
	// The condition keys embed the issuer, which is only known at deploy
	// time, so the condition block is assembled by CfnJson.
	conditions, err := core.NewCfnJson(node, "ConditionJson", map[string]any{
		issuer + ":aud": STSAudience,
		issuer + ":sub": "system:serviceaccount:" + sa.namespace + ":" + sa.name,
	})
	if err != nil {
		return nil, err
	}
	trust := intrinsics.NewPolicyDocument()
	trust.AddStatements(intrinsics.WebIdentityStatement(provider.ProviderArn(), map[string]any{
		intrinsics.StringEquals: conditions.Value(),
	}))
	if sa.role, err = iam.NewRole(node, "Role", iam.RoleProps{AssumeRolePolicy: trust}); err != nil {
		return nil, err
	}

	labels := map[string]string{"app.kubernetes.io/name": sa.name}
	for k, v := range props.Labels {
		labels[k] = v
	}
	annotations := map[string]string{}
	for k, v := range props.Annotations {
		annotations[k] = v
	}
	annotations[RoleArnAnnotation] = sa.role.RoleArn()

	obj, err := ObjectFrom(&corev1.ServiceAccount{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ServiceAccount"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        sa.name,
			Namespace:   sa.namespace,
			Labels:      labels,
			Annotations: annotations,
		},
	})
	if err != nil {
		return nil, err
	}
	if sa.manifest, err = props.Cluster.AddManifest(id+"ServiceAccountResource", obj); err != nil {
		return nil, err
	}
	return sa, nil
}

// Node returns the construct node.
func (s *ServiceAccount) Node() *core.Node { return s.node }

// Role returns the IAM role pods assume.
func (s *ServiceAccount) Role() *iam.Role { return s.role }

// RoleArn returns the role ARN.
func (s *ServiceAccount) RoleArn() string { return s.role.RoleArn() }

// Manifest returns the service account manifest.
func (s *ServiceAccount) Manifest() *KubernetesManifest { return s.manifest }

// ServiceAccountName returns the Kubernetes name.
func (s *ServiceAccount) ServiceAccountName() string { return s.name }

// ServiceAccountNamespace returns the Kubernetes namespace.
func (s *ServiceAccount) ServiceAccountNamespace() string { return s.namespace }

// AddToPrincipalPolicy grants the role additional permissions.
func (s *ServiceAccount) AddToPrincipalPolicy(statements ...intrinsics.PolicyStatement) error {
	return s.role.AddToPrincipalPolicy(statements...)
}
