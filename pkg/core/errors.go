package core

import "errors"

var (
	// ErrUnknownOperator is returned when an operator name is not registered
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrOperatorConflict is returned when a name is registered twice with
	// different implementations
	ErrOperatorConflict = errors.New("operator already registered")

	// ErrInvalidOperatorName is returned for names that do not start with '$'
	// followed by word characters
	ErrInvalidOperatorName = errors.New("invalid operator name")

	// ErrInvalidOperatorFunc is returned when an implementation does not
	// match the calling convention of its class
	ErrInvalidOperatorFunc = errors.New("invalid operator implementation")

	// ErrInvalidExpression is returned for structurally invalid expressions
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrInvalidArgument is returned when an operator argument has the
	// wrong type or arity
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMixedProjection is returned when a projection mixes inclusion
	// and exclusion
	ErrMixedProjection = errors.New("projection cannot mix inclusion and exclusion")

	// ErrUndefinedVariable is returned when a $$variable is not declared
	ErrUndefinedVariable = errors.New("use of undefined variable")

	// ErrScriptDisabled is returned when $where or $function are used
	// while script evaluation is disabled
	ErrScriptDisabled = errors.New("script evaluation is disabled")

	// ErrMissingValidator is returned by $jsonSchema when no validator is
	// configured
	ErrMissingValidator = errors.New("missing JSON schema validator")

	// ErrMissingResolver is returned by stages that read other collections
	// when no resolver is configured
	ErrMissingResolver = errors.New("missing collection resolver")

	// ErrInvalidOptions is returned by Options.Validate
	ErrInvalidOptions = errors.New("invalid options")
)
