// Package appsync provides property bags for AWS::AppSync::* resources.
//
// Each type mirrors one CloudFormation resource. Required properties carry
// the `cfn:"required"` tag and are enforced by wetwire.CheckRequired when
// the resource joins a stack; attribute fields are filled with Fn::GetAtt
// references at the same time.
package appsync
