// Package deploy creates or updates CloudFormation stacks from synthesized
// templates.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

// MaxTemplateBody is the largest template CloudFormation accepts inline.
const MaxTemplateBody = 51200

// DefaultTimeout bounds how long Deploy waits for a stack to settle. EKS
// clusters routinely take a quarter of an hour.
const DefaultTimeout = 60 * time.Minute

// Operations reported in Result.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationNone   = "none"
)

// API is the subset of the CloudFormation client used here.
type API interface {
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
}

// NewClient loads the shared AWS configuration. Empty region and profile
// fall back to the SDK defaults.
func NewClient(ctx context.Context, region, profile string) (*cloudformation.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return cloudformation.NewFromConfig(cfg), nil
}

// Request describes one stack deployment.
type Request struct {
	StackName  string
	Template   *wetwire.Template
	Parameters map[string]string
	Tags       map[string]string
	// TerminationProtection is applied when the stack is created.
	TerminationProtection bool
	// Wait blocks until the stack reaches a terminal state.
	Wait    bool
	Timeout time.Duration
}

// Result reports the outcome of Deploy.
type Result struct {
	StackName string            `json:"stackName"`
	StackID   string            `json:"stackId,omitempty"`
	Operation string            `json:"operation"`
	Status    string            `json:"status,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// Deployer drives CloudFormation.
type Deployer struct {
	api    API
	logger *zap.Logger
}

// New creates a Deployer.
func New(api API, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{api: api, logger: logger}
}

// Deploy creates the stack when it does not exist and updates it
// otherwise. An update with nothing to change is not an error.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	if req.StackName == "" {
		return nil, errors.New("stack name is required")
	}
	if req.Template == nil {
		return nil, errors.New("template is required")
	}
	body, err := json.Marshal(req.Template)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	if len(body) > MaxTemplateBody {
		return nil, fmt.Errorf("template for %s is %d bytes; CloudFormation accepts at most %d bytes inline", req.StackName, len(body), MaxTemplateBody)
	}
	if missing := missingParameters(req.Template, req.Parameters); len(missing) > 0 {
		return nil, fmt.Errorf("stack %s: no value for parameters %s", req.StackName, strings.Join(missing, ", "))
	}

	existing, err := d.describe(ctx, req.StackName)
	if err != nil {
		return nil, err
	}

	result := &Result{StackName: req.StackName}
	switch {
	case existing == nil:
		out, err := d.api.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:                   aws.String(req.StackName),
			TemplateBody:                aws.String(string(body)),
			Parameters:                  parameters(req.Parameters),
			Capabilities:                capabilities,
			Tags:                        tags(req.Tags),
			EnableTerminationProtection: aws.Bool(req.TerminationProtection),
		})
		if err != nil {
			return nil, fmt.Errorf("creating stack %s: %w", req.StackName, err)
		}
		result.Operation = OperationCreate
		result.StackID = aws.ToString(out.StackId)
	case existing.StackStatus == types.StackStatusRollbackComplete:
		return nil, fmt.Errorf("stack %s is in %s and cannot be updated; delete it and deploy again", req.StackName, existing.StackStatus)
	case strings.HasSuffix(string(existing.StackStatus), "_IN_PROGRESS"):
		return nil, fmt.Errorf("stack %s is busy (%s)", req.StackName, existing.StackStatus)
	default:
		out, err := d.api.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateBody: aws.String(string(body)),
			Parameters:   parameters(req.Parameters),
			Capabilities: capabilities,
			Tags:         tags(req.Tags),
		})
		if isNoUpdates(err) {
			d.logger.Info("stack is up to date", zap.String("stack", req.StackName))
			result.Operation = OperationNone
			result.StackID = aws.ToString(existing.StackId)
			result.Status = string(existing.StackStatus)
			result.Outputs = outputs(existing)
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("updating stack %s: %w", req.StackName, err)
		}
		result.Operation = OperationUpdate
		result.StackID = aws.ToString(out.StackId)
	}
	d.logger.Info("stack operation started",
		zap.String("stack", req.StackName),
		zap.String("operation", result.Operation))

	if !req.Wait {
		return result, nil
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := d.wait(ctx, req.StackName, result.Operation, timeout); err != nil {
		return nil, err
	}

	final, err := d.describe(ctx, req.StackName)
	if err != nil {
		return nil, err
	}
	if final != nil {
		result.Status = string(final.StackStatus)
		result.Outputs = outputs(final)
	}
	return result, nil
}

func (d *Deployer) wait(ctx context.Context, name, op string, timeout time.Duration) error {
	in := &cloudformation.DescribeStacksInput{StackName: aws.String(name)}
	var err error
	if op == OperationCreate {
		err = cloudformation.NewStackCreateCompleteWaiter(d.api).Wait(ctx, in, timeout)
	} else {
		err = cloudformation.NewStackUpdateCompleteWaiter(d.api).Wait(ctx, in, timeout)
	}
	if err != nil {
		return fmt.Errorf("waiting for stack %s: %w", name, err)
	}
	return nil
}

// describe returns nil when the stack does not exist.
func (d *Deployer) describe(ctx context.Context, name string) (*types.Stack, error) {
	out, err := d.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("describing stack %s: %w", name, err)
	}
	for i := range out.Stacks {
		if out.Stacks[i].StackStatus != types.StackStatusDeleteComplete {
			return &out.Stacks[i], nil
		}
	}
	return nil, nil
}

var capabilities = []types.Capability{
	types.CapabilityCapabilityIam,
	types.CapabilityCapabilityNamedIam,
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

func isNoUpdates(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}

// missingParameters lists template parameters with neither a default nor a
// supplied value.
func missingParameters(t *wetwire.Template, values map[string]string) []string {
	var missing []string
	for name, p := range t.Parameters {
		if p.Default != nil {
			continue
		}
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func parameters(values map[string]string) []types.Parameter {
	keys := sortedKeys(values)
	out := make([]types.Parameter, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Parameter{ParameterKey: aws.String(k), ParameterValue: aws.String(values[k])})
	}
	return out
}

func tags(values map[string]string) []types.Tag {
	keys := sortedKeys(values)
	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(values[k])})
	}
	return out
}

func outputs(s *types.Stack) map[string]string {
	if len(s.Outputs) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Outputs))
	for _, o := range s.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
