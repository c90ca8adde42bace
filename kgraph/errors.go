package kgraph

import (
	"fmt"

	"github.com/riffus/hyperswitch/catalog"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
)

// ErrorKind classifies a compilation failure.
type ErrorKind uint8

const (
	// UnknownDomainValue: a rule references a value the catalog lacks.
	UnknownDomainValue ErrorKind = iota
	// UnsatisfiableConstraint: the rules can never be jointly satisfied.
	UnsatisfiableConstraint
	// MalformedRule: a rule is missing a required precondition or
	// consequence, or carries an unknown consequence kind.
	MalformedRule
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownDomainValue:
		return "unknown_domain_value"
	case UnsatisfiableConstraint:
		return "unsatisfiable_constraint"
	case MalformedRule:
		return "malformed_rule"
	}
	return "unknown"
}

func (k ErrorKind) code() dErrors.Code {
	switch k {
	case UnknownDomainValue:
		return dErrors.CodeUnknownValue
	case UnsatisfiableConstraint:
		return dErrors.CodeUnsatisfiable
	case MalformedRule:
		return dErrors.CodeMalformedRule
	}
	return dErrors.CodeInternal
}

// CompileError reports why a configuration did not compile, naming the rule
// and value involved. Compilation is all-or-nothing: the first error aborts
// and no partial graph is produced.
type CompileError struct {
	Kind ErrorKind
	// RuleIndex is the zero-based position of the offending rule, or -1
	// when the failure is not attributable to a single rule.
	RuleIndex int
	RuleID    string
	// Value is the node involved, when the failure is value-specific.
	Value  catalog.Pair
	Detail string
}

func (e *CompileError) Error() string {
	msg := e.Kind.String()
	if e.RuleIndex >= 0 {
		if e.RuleID != "" {
			msg = fmt.Sprintf("%s: rule %d (%s)", msg, e.RuleIndex, e.RuleID)
		} else {
			msg = fmt.Sprintf("%s: rule %d", msg, e.RuleIndex)
		}
	}
	if e.Value != (catalog.Pair{}) {
		msg += ": " + e.Value.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Code maps the error kind onto the shared error-code vocabulary.
func (e *CompileError) Code() dErrors.Code { return e.Kind.code() }

// coded wraps the error into the shared coded chain, so callers branch with
// dErrors.HasCode while errors.As still reaches the CompileError itself.
func (e *CompileError) coded() error {
	return dErrors.Wrap(e, e.Code(), "compile")
}

func ruleErr(kind ErrorKind, index int, id string, value catalog.Pair, detail string) *CompileError {
	return &CompileError{Kind: kind, RuleIndex: index, RuleID: id, Value: value, Detail: detail}
}
