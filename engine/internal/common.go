package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
)

var commandValidator = validator.New(validator.WithRequiredStructEnabled())

// validateCommand validates a command against its struct tags.
// Violations are mapped to causes of a VALIDATION error.
func validateCommand(cmd any, title string) error {
	err := commandValidator.Struct(cmd)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate command %T: %v", cmd, err)
	}

	causes := make([]engine.ErrorCause, len(validationErrors))
	for i, fieldError := range validationErrors {
		causes[i] = engine.ErrorCause{
			Pointer: fieldError.Namespace(),
			Type:    "field",
			Detail:  fmt.Sprintf("constraint %s is violated", fieldError.Tag()),
		}
	}

	return engine.Error{
		Type:   engine.ErrorValidation,
		Title:  title,
		Detail: "command is invalid",
		Causes: causes,
	}
}

// evaluateDueAt determines the point in time when a task, created at the
// given node, becomes due. A due cycle takes precedence over a due duration.
func evaluateDueAt(node *definition.Node, start time.Time) (time.Time, error) {
	if node.DueCycle != "" {
		return gronx.NextTickAfter(node.DueCycle, start, false)
	}
	if node.DueAfter != "" {
		duration, err := engine.NewISO8601Duration(node.DueAfter)
		if err != nil {
			return time.Time{}, err
		}
		return duration.Calculate(start), nil
	}
	return start, nil
}

func timeOrNil(v pgtype.Timestamp) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func marshalJSONText(v any) (pgtype.Text, error) {
	if v == nil {
		return pgtype.Text{}, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return pgtype.Text{}, fmt.Errorf("failed to marshal %T: %v", v, err)
	}

	return pgtype.Text{String: string(b), Valid: true}, nil
}

func unmarshalVariables(v pgtype.Text) map[string]any {
	if !v.Valid {
		return nil
	}

	var variables map[string]any
	_ = json.Unmarshal([]byte(v.String), &variables)
	return variables
}

func unmarshalStrings(v pgtype.Text) []string {
	if !v.Valid {
		return nil
	}

	var values []string
	_ = json.Unmarshal([]byte(v.String), &values)
	return values
}

func unmarshalInt32s(v pgtype.Text) []int32 {
	if !v.Valid {
		return nil
	}

	var values []int32
	_ = json.Unmarshal([]byte(v.String), &values)
	return values
}

func publishEvent(ctx Context, eventType string, payload any) {
	ctx.Options().EventBus.Publish(engine.Event{Type: eventType, Payload: payload})
}

func nodePointer(node *definition.Node) string {
	return "/" + node.Id
}

func edgePointer(edge *definition.Edge) string {
	var sb strings.Builder

	sb.WriteRune('/')
	sb.WriteString(edge.SourceId)
	sb.WriteRune('/')
	if edge.Id != "" {
		sb.WriteString(edge.Id)
	} else {
		sb.WriteString(edge.TargetId)
	}

	return sb.String()
}
