package eks

import (
	"encoding/json"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
)

// Kubernetes groups used in aws-auth mappings.
const (
	GroupMasters       = "system:masters"
	GroupBootstrappers = "system:bootstrappers"
	GroupNodes         = "system:nodes"
	GroupNodeProxier   = "system:node-proxier"
)

// AwsAuthMapping maps an IAM identity to a Kubernetes user and groups.
type AwsAuthMapping struct {
	// Username defaults to the IAM ARN.
	Username string
	Groups   []string
}

type roleMapping struct {
	RoleArn  string   `json:"rolearn"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups"`
}

type userMapping struct {
	UserArn  string   `json:"userarn"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups"`
}

// AwsAuthProps configures an AwsAuth.
type AwsAuthProps struct {
	Cluster *Cluster
}

// AwsAuth manages the kube-system/aws-auth ConfigMap that maps IAM roles
// and users to Kubernetes identities. Mappings are rendered at synthesis,
// so they may be added until the stack is synthesized.
type AwsAuth struct {
	node     *core.Node
	manifest *KubernetesManifest

	roles    []roleMapping
	users    []userMapping
	accounts []string
}

// NewAwsAuth creates the aws-auth manifest. Clusters create it through
// Cluster.AwsAuth; a second instance for the same cluster would fight over
// the ConfigMap.
func NewAwsAuth(scope core.Construct, id string, props AwsAuthProps) (*AwsAuth, error) {
	if props.Cluster == nil {
		return nil, errors.New("aws-auth: Cluster is required")
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	a := &AwsAuth{node: node}

	cm := &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      "aws-auth",
			Namespace: "kube-system",
		},
		Data: map[string]string{
			"mapRoles":    core.LazyString(func() any { return core.ToJSONString(orEmpty(a.roles)) }),
			"mapUsers":    core.LazyString(func() any { return core.ToJSONString(orEmpty(a.users)) }),
			"mapAccounts": core.LazyString(func() any { return core.ToJSONString(orEmpty(a.accounts)) }),
		},
	}
	obj, err := ObjectFrom(cm)
	if err != nil {
		return nil, err
	}
	a.manifest, err = NewKubernetesManifest(node, "manifest", KubernetesManifestProps{
		Cluster:   props.Cluster,
		Manifest:  []map[string]any{obj},
		Overwrite: true,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Node returns the construct node.
func (a *AwsAuth) Node() *core.Node { return a.node }

// Manifest returns the ConfigMap manifest.
func (a *AwsAuth) Manifest() *KubernetesManifest { return a.manifest }

// AddMastersRole maps role to system:masters.
func (a *AwsAuth) AddMastersRole(role iam.IRole, username string) error {
	if username == "" {
		username = role.RoleArn()
	}
	return a.AddRoleMapping(role, AwsAuthMapping{Username: username, Groups: []string{GroupMasters}})
}

// AddRoleMapping maps an IAM role to a Kubernetes identity. Identical
// mappings are kept once.
func (a *AwsAuth) AddRoleMapping(role iam.IRole, m AwsAuthMapping) error {
	if role == nil {
		return errors.New("aws-auth: role is required")
	}
	if len(m.Groups) == 0 {
		return fmt.Errorf("aws-auth: mapping for role %s needs at least one group", role.RoleArn())
	}
	entry := roleMapping{RoleArn: role.RoleArn(), Username: m.Username, Groups: m.Groups}
	if entry.Username == "" {
		entry.Username = entry.RoleArn
	}
	if !containsJSON(a.roles, entry) {
		a.roles = append(a.roles, entry)
	}
	return nil
}

// AddUserMapping maps an IAM user ARN to a Kubernetes identity.
func (a *AwsAuth) AddUserMapping(userArn string, m AwsAuthMapping) error {
	if userArn == "" {
		return errors.New("aws-auth: user ARN is required")
	}
	if len(m.Groups) == 0 {
		return fmt.Errorf("aws-auth: mapping for user %s needs at least one group", userArn)
	}
	entry := userMapping{UserArn: userArn, Username: m.Username, Groups: m.Groups}
	if entry.Username == "" {
		entry.Username = userArn
	}
	if !containsJSON(a.users, entry) {
		a.users = append(a.users, entry)
	}
	return nil
}

// AddAccount maps every IAM identity of an account to a Kubernetes user
// of the same name.
func (a *AwsAuth) AddAccount(accountID string) {
	for _, existing := range a.accounts {
		if existing == accountID {
			return
		}
	}
	a.accounts = append(a.accounts, accountID)
}

// containsJSON compares resolved values, so two tokens for the same
// attribute count as equal.
func containsJSON[T any](list []T, v T) bool {
	want, err := resolvedJSON(v)
	if err != nil {
		return false
	}
	for _, existing := range list {
		got, err := resolvedJSON(existing)
		if err == nil && got == want {
			return true
		}
	}
	return false
}

func resolvedJSON(v any) (string, error) {
	resolved, err := core.Resolve(v)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(resolved)
	return string(data), err
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
